// Package config loads configuration structs from the environment and configuration files,
// and exposes them as creation strategies for builders.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/a-peyrard/objbuilder/fn"
	"github.com/a-peyrard/objbuilder/option"
	"github.com/spf13/viper"
)

type (
	Options struct {
		prefix string
		file   string
	}

	// WithDefault is implemented by configuration structs filling their own defaults,
	// ApplyDefault is called once values are loaded.
	WithDefault interface {
		ApplyDefault()
	}
)

var withDefaultType = reflect.TypeOf((*WithDefault)(nil)).Elem()

// WithEnvPrefix sets the prefix of the environment variables, e.g. APP for APP_SERVER_PORT.
func WithEnvPrefix(prefix string) option.Option[Options] {
	return func(opts *Options) {
		opts.prefix = prefix
	}
}

// WithFile reads the given configuration file (any format supported by viper) before the environment.
// Environment variables take precedence over the file.
func WithFile(path string) option.Option[Options] {
	return func(opts *Options) {
		opts.file = path
	}
}

// Load creates a T from the environment, and the configuration file if any.
//
// Nested nil struct pointers are allocated, and every struct implementing WithDefault gets its defaults applied.
func Load[T any](opts ...option.Option[Options]) (*T, error) {
	options := option.Build(&Options{}, opts...)

	v := viper.New()
	v.SetEnvPrefix(options.prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.file != "" {
		v.SetConfigFile(options.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file %s:\n\t%w", options.file, err)
		}
	}

	var target T
	bindEnvs(v, options.prefix, reflect.TypeOf(target))

	if err := v.Unmarshal(&target); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	walk(
		reflect.ValueOf(&target),
		nil,
		fn.AllTriConsumer(
			allocateNilStructs,
			applyDefault,
		),
	)

	return &target, nil
}

// Factory returns a creation strategy loading a fresh T on every call, typically used as:
//
//	objbuilder.NewFallible(config.Factory[AppConfig](config.WithEnvPrefix("APP")))
func Factory[T any](opts ...option.Option[Options]) fn.Factory[*T] {
	return func() (*T, error) {
		return Load[T](opts...)
	}
}

func bindEnvs(v *viper.Viper, envPrefix string, typ reflect.Type, parts ...string) {
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := field.Tag.Lookup("mapstructure")
		if !ok {
			name = field.Name
		}

		fieldType := field.Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		if fieldType.Kind() == reflect.Struct {
			bindEnvs(v, envPrefix, fieldType, append(parts, name)...)
			continue
		}

		key := strings.Join(append(parts, name), ".")
		_ = v.BindEnv(key, envName(envPrefix, append(parts, name)))
	}
}

// envName maps key parts to the environment variable name, e.g. (APP, [Server, MaxConns]) to APP_SERVER_MAX_CONNS.
func envName(envPrefix string, parts []string) string {
	snaked := make([]string, 0, len(parts)+1)
	if envPrefix != "" {
		snaked = append(snaked, strings.ToUpper(envPrefix))
	}
	for _, part := range parts {
		snaked = append(snaked, screamingSnake(part))
	}
	return strings.Join(snaked, "_")
}

func screamingSnake(in string) string {
	in = strings.TrimSpace(in)

	var sb strings.Builder
	sb.Grow(len(in) + len(in)/3)
	for i, r := range in {
		switch {
		case r == '_' || r == '-':
			if i > 0 {
				sb.WriteByte('_')
			}
		case unicode.IsUpper(r) || unicode.IsDigit(r):
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(unicode.ToUpper(r))
		}
	}
	return sb.String()
}

// walk calls visit on val, then on every exported field of the struct it points to, recursively.
func walk(val reflect.Value, path []string, visit fn.TriConsumer[reflect.Value, reflect.Type, []string]) {
	visit(val, val.Type(), path)

	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		walk(val.Field(i), append(path, field.Name), visit)
	}
}

func allocateNilStructs(val reflect.Value, typ reflect.Type, _ []string) {
	if typ.Kind() == reflect.Pointer &&
		typ.Elem().Kind() == reflect.Struct &&
		val.IsNil() &&
		val.CanSet() {

		val.Set(reflect.New(typ.Elem()))
	}
}

func applyDefault(val reflect.Value, typ reflect.Type, _ []string) {
	switch {
	case typ.Kind() == reflect.Pointer && typ.Implements(withDefaultType):
		if !val.IsNil() {
			val.Interface().(WithDefault).ApplyDefault()
		}
	case typ.Kind() == reflect.Struct && val.CanAddr() && reflect.PointerTo(typ).Implements(withDefaultType):
		val.Addr().Interface().(WithDefault).ApplyDefault()
	}
}
