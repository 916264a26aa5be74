package objbuilder

import "time"

type (
	// Observer receives an event for every registration and every build of a builder.
	//
	// Observers are called synchronously, from the goroutine registering or building,
	// so they must be safe for concurrent use and return quickly.
	Observer interface {
		OnRegister(event RegisterEvent)
		OnBuild(event BuildEvent)
	}

	RegisterEvent struct {
		Builder string
		// Steps is the chain length once the step is installed.
		Steps int
		// Retries counts the compare-and-swap attempts lost to concurrent registrations.
		Retries int
	}

	BuildEvent struct {
		Builder string
		// Steps is the length of the chain the build ran.
		Steps int
		// Skipped counts the conditional steps whose condition did not hold.
		Skipped  int
		Duration time.Duration
		Err      error
	}
)
