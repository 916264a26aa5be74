package objbuilder

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testObj struct {
	name   string
	number int
	flag   bool
}

func newTestObj() *testObj {
	return &testObj{}
}

func (o *testObj) setName(name string)  { o.name = name }
func (o *testObj) setNumber(number int) { o.number = number }
func (o *testObj) setFlag(flag bool)    { o.flag = flag }

func (o *testObj) clone() *testObj {
	c := *o
	return &c
}

func valueOdd(_ *testObj, value int) bool {
	return value%2 != 0
}

type recordingObserver struct {
	mu        sync.Mutex
	registers []RegisterEvent
	builds    []BuildEvent
}

func (o *recordingObserver) OnRegister(event RegisterEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registers = append(o.registers, event)
}

func (o *recordingObserver) OnBuild(event BuildEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.builds = append(o.builds, event)
}

type setterMock struct {
	mock.Mock
}

func (m *setterMock) SetName(_ *testObj, name string)  { m.Called("name", name) }
func (m *setterMock) SetNumber(_ *testObj, number int) { m.Called("number", number) }
func (m *setterMock) SetFlag(_ *testObj, flag bool)    { m.Called("flag", flag) }

func TestBuilder_New(t *testing.T) {
	t.Run("it should apply setters on a new instance", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj)
		Set(b, "halghasgshg", (*testObj).setName)
		Set(b, 12141142, (*testObj).setNumber)
		Set(b, true, (*testObj).setFlag)

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, &testObj{name: "halghasgshg", number: 12141142, flag: true}, actual)
	})

	t.Run("it should call setters in registration order", func(t *testing.T) {
		// GIVEN
		setters := &setterMock{}
		mock.InOrder(
			setters.On("SetName", "name", "n").Return().Once(),
			setters.On("SetNumber", "number", 7).Return().Once(),
			setters.On("SetFlag", "flag", true).Return().Once(),
		)

		b := New(newTestObj)
		Set(b, "n", setters.SetName)
		Set(b, 7, setters.SetNumber)
		Set(b, true, setters.SetFlag)

		// WHEN
		_, err := b.Build()

		// THEN
		require.NoError(t, err)
		setters.AssertExpectations(t)
	})

	t.Run("it should keep the last registered value of each field", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj)
		Set(b, "first", (*testObj).setName)
		Set(b, 1, (*testObj).setNumber)
		Set(b, "second", (*testObj).setName)

		// WHEN
		actual := b.MustBuild()

		// THEN
		assert.Equal(t, "second", actual.name)
		assert.Equal(t, 1, actual.number)
	})

	t.Run("it should apply arbitrary modifiers in order", func(t *testing.T) {
		// GIVEN
		name := "halghasgshg"
		number := 12141142
		b := New(newTestObj)
		Set(b, name, (*testObj).setName).
			Modify(func(o *testObj) { o.setFlag(number%2 == 0) }).
			Modify(func(o *testObj) { o.setNumber(number - 4) }).
			Modify(func(o *testObj) { o.setName("Team " + o.name) })

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, &testObj{name: "Team " + name, number: number - 4, flag: true}, actual)
	})

	t.Run("it should build the bare instance when nothing is registered", func(t *testing.T) {
		// GIVEN
		calls := 0
		b := New(func() *testObj {
			calls++
			return &testObj{name: "bare", number: 3}
		})

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, &testObj{name: "bare", number: 3}, actual)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("it should capture set values at registration time", func(t *testing.T) {
		// GIVEN
		name := "registered"
		b := New(newTestObj)
		Set(b, name, (*testObj).setName)
		name = "changed afterward"

		// WHEN
		actual := b.MustBuild()

		// THEN
		assert.Equal(t, "registered", actual.name)
	})

	t.Run("it should not call the producer at construction time", func(t *testing.T) {
		// GIVEN
		calls := 0

		// WHEN
		New(func() *testObj {
			calls++
			return newTestObj()
		})

		// THEN
		assert.Equal(t, 0, calls)
	})
}

func TestBuilder_FromPrototype(t *testing.T) {
	t.Run("it should build from a snapshot of the prototype", func(t *testing.T) {
		// GIVEN
		expected := &testObj{name: "halghasgshg", number: 12141142, flag: true}
		initObj := &testObj{name: "a", number: 1}
		b := FromPrototype(initObj, (*testObj).clone)
		initObj.setName("aaa")
		Set(b, "halghasgshg", (*testObj).setName)
		Set(b, 12141142, (*testObj).setNumber)
		Set(b, true, (*testObj).setFlag)

		// WHEN
		actual1, err := b.Build()
		require.NoError(t, err)
		actual2, err := b.Build()
		require.NoError(t, err)

		// THEN
		assert.NotSame(t, initObj, actual1)
		assert.Equal(t, expected, actual1)
		assert.NotSame(t, initObj, actual2)
		assert.NotSame(t, actual1, actual2)
		assert.Equal(t, expected, actual2)
	})

	t.Run("it should ignore later mutations of the prototype", func(t *testing.T) {
		// GIVEN
		prototype := &testObj{name: "a", number: 1}
		b := FromPrototype(prototype, (*testObj).clone)

		// WHEN
		prototype.setName("b")
		prototype.setNumber(2)
		actual := b.MustBuild()

		// THEN
		assert.Equal(t, &testObj{name: "a", number: 1}, actual)
	})

	t.Run("it should copy once at construction then once per build", func(t *testing.T) {
		// GIVEN
		var copies []*testObj
		copier := func(o *testObj) *testObj {
			c := o.clone()
			copies = append(copies, c)
			return c
		}

		// WHEN
		b := FromPrototype(&testObj{name: "a"}, copier)
		require.Len(t, copies, 1)
		snapshot := copies[0]
		first := b.MustBuild()
		second := b.MustBuild()

		// THEN
		assert.Len(t, copies, 3)
		assert.NotSame(t, snapshot, first)
		assert.NotSame(t, snapshot, second)
	})

	t.Run("it should never expose the snapshot to modifications", func(t *testing.T) {
		// GIVEN
		b := FromPrototype(&testObj{name: "a"}, (*testObj).clone).
			Modify(func(o *testObj) { o.name += "!" })

		// WHEN
		first := b.MustBuild()
		second := b.MustBuild()
		first.setName("mutated")

		// THEN
		assert.Equal(t, "a!", second.name)
		assert.Equal(t, "a!", b.MustBuild().name)
	})

	t.Run("it should fail when the snapshot cannot be taken", func(t *testing.T) {
		// GIVEN
		copier := func(*testObj) (*testObj, error) {
			return nil, errors.New("not copyable")
		}

		// WHEN
		b, err := FromPrototypeFallible(&testObj{}, copier, Named("broken"))

		// THEN
		require.Error(t, err)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, ErrCreationFailed)
		assert.Contains(t, err.Error(), "not copyable")
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("it should build from a fallible copier", func(t *testing.T) {
		// GIVEN
		copier := func(o *testObj) (*testObj, error) {
			return o.clone(), nil
		}
		b, err := FromPrototypeFallible(&testObj{number: 5}, copier)
		require.NoError(t, err)
		b.Modify(func(o *testObj) { o.number *= 2 })

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, 10, actual.number)
	})
}

func TestBuilder_Conditions(t *testing.T) {
	t.Run("it should skip steps whose condition does not hold", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj).
			ModifyIf(func(o *testObj) { o.setName("Hello") }, func(*testObj) bool { return true }).
			ModifyIf(func(o *testObj) { o.setName("Goodbye") }, func(*testObj) bool { return false })
		SetIf(b, 1, (*testObj).setNumber, valueOdd)
		SetIf(b, 2, (*testObj).setNumber, valueOdd)

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "Hello", actual.name)
		assert.Equal(t, 1, actual.number)
	})

	t.Run("it should evaluate conditions against the state left by the preceding steps", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj)
		Set(b, 1, (*testObj).setNumber)
		b.ModifyIf(
			func(o *testObj) { o.setName("after one") },
			func(o *testObj) bool { return o.number == 1 },
		)
		Set(b, 2, (*testObj).setNumber)
		b.ModifyIf(
			func(o *testObj) { o.setFlag(true) },
			func(o *testObj) bool { return o.number == 1 },
		)

		// WHEN
		actual := b.MustBuild()

		// THEN
		assert.Equal(t, "after one", actual.name)
		assert.False(t, actual.flag, "the flag condition should see number=2")
	})

	t.Run("it should evaluate conditions at build time, not at registration time", func(t *testing.T) {
		// GIVEN
		enabled := false
		b := New(newTestObj).ModifyIf(
			func(o *testObj) { o.setFlag(true) },
			func(*testObj) bool { return enabled },
		)

		// WHEN
		before := b.MustBuild()
		enabled = true
		after := b.MustBuild()

		// THEN
		assert.False(t, before.flag)
		assert.True(t, after.flag)
	})

	t.Run("it should pass the set value to the condition", func(t *testing.T) {
		// GIVEN
		var seen []string
		b := New(newTestObj)
		SetIf(b, "x", (*testObj).setName, func(o *testObj, value string) bool {
			seen = append(seen, fmt.Sprintf("%s->%s", o.name, value))
			return true
		})
		SetIf(b, "y", (*testObj).setName, func(o *testObj, value string) bool {
			seen = append(seen, fmt.Sprintf("%s->%s", o.name, value))
			return true
		})

		// WHEN
		actual := b.MustBuild()

		// THEN
		assert.Equal(t, "y", actual.name)
		assert.Equal(t, []string{"->x", "x->y"}, seen)
	})

	t.Run("it should guard fallible and replacing steps", func(t *testing.T) {
		// GIVEN
		never := func(int) bool { return false }
		b := Static(1).
			TryIf(func(int) error { return errors.New("should not run") }, never).
			ReplaceIf(func(i int) int { return i * 100 }, never).
			ReplaceIf(func(i int) int { return i + 1 }, func(i int) bool { return i == 1 })

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, 2, actual)
	})
}

func TestBuilder_ValuePayloads(t *testing.T) {
	type point struct {
		X, Y int
	}

	t.Run("it should replace value instances", func(t *testing.T) {
		// GIVEN
		b := Static(point{X: 1}).
			Replace(func(p point) point { p.Y = 2; return p })
		With(b, 10, func(p point, x int) point { p.X = x; return p })

		// WHEN
		actual, err := b.Build()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, point{X: 10, Y: 2}, actual)
	})

	t.Run("it should start every build from the static value", func(t *testing.T) {
		// GIVEN
		b := Static(point{X: 1}).
			Replace(func(p point) point { p.X++; return p })

		// WHEN
		first := b.MustBuild()
		second := b.MustBuild()

		// THEN
		assert.Equal(t, point{X: 2}, first)
		assert.Equal(t, point{X: 2}, second)
	})
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("it should return creation errors", func(t *testing.T) {
		// GIVEN
		b := NewFallible(func() (*testObj, error) {
			return nil, errors.New("factory intentionally failed")
		}, Named("failing"))

		// WHEN
		actual, err := b.Build()

		// THEN
		require.Error(t, err)
		assert.Nil(t, actual)
		assert.ErrorIs(t, err, ErrCreationFailed)
		assert.Contains(t, err.Error(), "factory intentionally failed")
		assert.Contains(t, err.Error(), "failing")
	})

	t.Run("it should return step errors with the step index", func(t *testing.T) {
		// GIVEN
		boom := errors.New("step intentionally failed")
		var ranAfter bool
		b := New(newTestObj, Named("steps"))
		Set(b, "a", (*testObj).setName)
		b.Try(func(*testObj) error { return boom })
		b.Modify(func(*testObj) { ranAfter = true })

		// WHEN
		actual, err := b.Build()

		// THEN
		require.Error(t, err)
		assert.Nil(t, actual)
		assert.False(t, ranAfter, "steps after a failure should not run")
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, ErrStepFailed)
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, 1, stepErr.Index)
		assert.Equal(t, "steps", stepErr.Builder)
		assert.Contains(t, err.Error(), "#1 of builder steps")
	})

	t.Run("it should not keep failures for the following builds", func(t *testing.T) {
		// GIVEN
		fail := true
		b := New(newTestObj).Try(func(o *testObj) error {
			if fail {
				return errors.New("transient")
			}
			o.setName("ok")
			return nil
		})

		// WHEN
		_, firstErr := b.Build()
		fail = false
		actual, secondErr := b.Build()

		// THEN
		require.Error(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, "ok", actual.name)
	})

	t.Run("it should recover from transient creation errors", func(t *testing.T) {
		// GIVEN
		attempts := 0
		b := NewFallible(func() (*testObj, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("not yet")
			}
			return newTestObj(), nil
		})
		Set(b, 4, (*testObj).setNumber)

		// WHEN
		_, firstErr := b.Build()
		actual, secondErr := b.Build()

		// THEN
		require.Error(t, firstErr)
		require.NoError(t, secondErr)
		assert.Equal(t, 4, actual.number)
	})

	t.Run("it should let panics propagate", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj).Modify(func(*testObj) { panic("step panicked") })

		// WHEN & THEN
		assert.PanicsWithValue(t, "step panicked", func() {
			_, _ = b.Build()
		})
	})

	t.Run("it should panic from MustBuild on failure", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj).Try(func(*testObj) error { return errors.New("nope") })

		// WHEN & THEN
		assert.Panics(t, func() {
			b.MustBuild()
		})
	})

	t.Run("it should reject nil functions", func(t *testing.T) {
		b := New(newTestObj)

		assert.PanicsWithValue(t, "objbuilder: nil producer", func() { New[*testObj](nil) })
		assert.PanicsWithValue(t, "objbuilder: nil factory", func() { NewFallible[*testObj](nil) })
		assert.PanicsWithValue(t, "objbuilder: nil copier", func() { FromPrototype[*testObj](newTestObj(), nil) })
		assert.PanicsWithValue(t, "objbuilder: nil action", func() { b.Modify(nil) })
		assert.PanicsWithValue(t, "objbuilder: nil condition", func() { b.ModifyIf(func(*testObj) {}, nil) })
		assert.PanicsWithValue(t, "objbuilder: nil setter", func() { Set[*testObj, int](b, 1, nil) })
		assert.Equal(t, 0, b.Len(), "rejected registrations should not be installed")
	})
}

func TestBuilder_Fork(t *testing.T) {
	t.Run("it should share the steps registered before the fork only", func(t *testing.T) {
		// GIVEN
		base := New(newTestObj)
		Set(base, "shared", (*testObj).setName)

		// WHEN
		fork := base.Fork(Named("fork"))
		Set(fork, 1, (*testObj).setNumber)
		Set(base, true, (*testObj).setFlag)

		// THEN
		assert.Equal(t, &testObj{name: "shared", flag: true}, base.MustBuild())
		assert.Equal(t, &testObj{name: "shared", number: 1}, fork.MustBuild())
		assert.Equal(t, 2, base.Len())
		assert.Equal(t, 2, fork.Len())
		assert.Equal(t, "fork", fork.Name())
		assert.NotEqual(t, base.ID(), fork.ID())
	})

	t.Run("it should keep the original name by default", func(t *testing.T) {
		// GIVEN
		base := New(newTestObj, Named("original"))

		// WHEN
		fork := base.Fork()

		// THEN
		assert.Equal(t, "original", fork.Name())
	})
}

func TestBuilder_Introspection(t *testing.T) {
	t.Run("it should be named after the payload type by default", func(t *testing.T) {
		assert.Equal(t, "*objbuilder.testObj", New(newTestObj).Name())
		assert.Equal(t, "int", Static(1).Name())
	})

	t.Run("it should count registered steps", func(t *testing.T) {
		// GIVEN
		b := New(newTestObj)

		// WHEN
		Set(b, "a", (*testObj).setName).
			Modify(func(*testObj) {}).
			ModifyIf(func(*testObj) {}, func(*testObj) bool { return false })

		// THEN
		assert.Equal(t, 3, b.Len())
	})

	t.Run("it should generate a unique id per builder", func(t *testing.T) {
		assert.NotEmpty(t, New(newTestObj).ID())
		assert.NotEqual(t, New(newTestObj).ID(), New(newTestObj).ID())
	})
}

func TestBuilder_Observability(t *testing.T) {
	t.Run("it should notify the observer", func(t *testing.T) {
		// GIVEN
		observer := &recordingObserver{}
		fail := false
		b := New(newTestObj, Named("observed"), WithObserver(observer))
		Set(b, "a", (*testObj).setName)
		SetIf(b, 2, (*testObj).setNumber, valueOdd)
		b.Try(func(*testObj) error {
			if fail {
				return errors.New("failing")
			}
			return nil
		})

		// WHEN
		_, err := b.Build()
		require.NoError(t, err)
		fail = true
		b.Modify(func(o *testObj) { o.setFlag(true) })
		b.Modify(func(*testObj) {})
		_, _ = b.Build()

		// THEN
		require.Len(t, observer.registers, 5)
		assert.Equal(t, RegisterEvent{Builder: "observed", Steps: 1}, observer.registers[0])
		assert.Equal(t, 5, observer.registers[4].Steps)

		require.Len(t, observer.builds, 2)
		assert.Equal(t, "observed", observer.builds[0].Builder)
		assert.Equal(t, 3, observer.builds[0].Steps)
		assert.Equal(t, 1, observer.builds[0].Skipped)
		assert.NoError(t, observer.builds[0].Err)
		assert.Equal(t, 5, observer.builds[1].Steps)
		assert.Error(t, observer.builds[1].Err)
	})

	t.Run("it should log registrations and builds", func(t *testing.T) {
		// GIVEN
		var out bytes.Buffer
		logger := zerolog.New(&out).Level(zerolog.DebugLevel)
		b := New(newTestObj, Named("logged"), WithLogger(&logger))

		// WHEN
		Set(b, "a", (*testObj).setName)
		b.MustBuild()
		b.Try(func(*testObj) error { return errors.New("broken") })
		_, _ = b.Build()

		// THEN
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], `"message":"step registered"`)
		assert.Contains(t, lines[0], `"builder":"logged"`)
		assert.Contains(t, lines[0], `"builder_id":"`+b.ID()+`"`)
		assert.Contains(t, lines[1], `"message":"instance built"`)
		assert.Contains(t, lines[1], `"steps":1`)
		assert.Contains(t, lines[3], `"level":"warn"`)
		assert.Contains(t, lines[3], `"message":"build failed"`)
		assert.Contains(t, lines[3], "broken")
	})
}
