package objbuilder

import (
	"github.com/a-peyrard/objbuilder/option"
	"github.com/rs/zerolog"
)

type (
	Options struct {
		name     string
		logger   *zerolog.Logger
		observer Observer
	}
)

// Named sets the builder name used in logs, errors and metric labels.
// By default, the name of the payload type is used.
func Named(name string) option.Option[Options] {
	return func(opts *Options) {
		opts.name = name
	}
}

// WithLogger makes the builder log registrations and builds at debug level, failures at warn level.
func WithLogger(logger *zerolog.Logger) option.Option[Options] {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// WithObserver notifies the given observer of every registration and build.
func WithObserver(observer Observer) option.Option[Options] {
	return func(opts *Options) {
		opts.observer = observer
	}
}

func buildOptions[T any](opts []option.Option[Options]) *Options {
	options := option.Build(&Options{}, opts...)
	if options.name == "" {
		options.name = TypeOf[T]().String()
	}
	return options
}
