// Package metrics exposes builder activity as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/a-peyrard/objbuilder"
	"github.com/a-peyrard/objbuilder/option"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type (
	Options struct {
		namespace string
		buckets   []float64
	}

	// Collector is an objbuilder.Observer recording registrations and builds,
	// labelled by builder name.
	Collector struct {
		builds        *prometheus.CounterVec
		buildDuration *prometheus.HistogramVec
		skippedSteps  *prometheus.CounterVec
		registrations *prometheus.CounterVec
		retries       *prometheus.CounterVec
	}
)

var _ objbuilder.Observer = (*Collector)(nil)

// WithNamespace replaces the default "objbuilder" metric namespace.
func WithNamespace(namespace string) option.Option[Options] {
	return func(opts *Options) {
		opts.namespace = namespace
	}
}

// WithBuckets sets the buckets of the build duration histogram, in seconds.
func WithBuckets(buckets ...float64) option.Option[Options] {
	return func(opts *Options) {
		opts.buckets = buckets
	}
}

// NewCollector creates a collector and registers its metrics on the given registerer.
func NewCollector(registerer prometheus.Registerer, opts ...option.Option[Options]) (*Collector, error) {
	options := option.Build(
		&Options{
			namespace: "objbuilder",
			buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		},
		opts...,
	)

	c := &Collector{
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: options.namespace,
				Name:      "builds_total",
				Help:      "Total number of build attempts",
			},
			[]string{"builder", "status"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: options.namespace,
				Name:      "build_duration_seconds",
				Help:      "Time taken to create and modify an instance",
				Buckets:   options.buckets,
			},
			[]string{"builder"},
		),
		skippedSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: options.namespace,
				Name:      "skipped_steps_total",
				Help:      "Total number of conditional steps skipped during builds",
			},
			[]string{"builder"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: options.namespace,
				Name:      "registrations_total",
				Help:      "Total number of registered modification steps",
			},
			[]string{"builder"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: options.namespace,
				Name:      "registration_retries_total",
				Help:      "Total number of registrations retried because of a concurrent registration",
			},
			[]string{"builder"},
		),
	}

	for _, collector := range []prometheus.Collector{c.builds, c.buildDuration, c.skippedSteps, c.registrations, c.retries} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register builder metrics:\n\t%w", err)
		}
	}
	return c, nil
}

// MustNewCollector is NewCollector, panicking on registration failure.
func MustNewCollector(registerer prometheus.Registerer, opts ...option.Option[Options]) *Collector {
	c, err := NewCollector(registerer, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Collector) OnRegister(event objbuilder.RegisterEvent) {
	c.registrations.WithLabelValues(event.Builder).Inc()
	if event.Retries > 0 {
		c.retries.WithLabelValues(event.Builder).Add(float64(event.Retries))
	}
}

func (c *Collector) OnBuild(event objbuilder.BuildEvent) {
	status := statusSuccess
	if event.Err != nil {
		status = statusError
	}
	c.builds.WithLabelValues(event.Builder, status).Inc()
	c.buildDuration.WithLabelValues(event.Builder).Observe(event.Duration.Seconds())
	if event.Skipped > 0 {
		c.skippedSteps.WithLabelValues(event.Builder).Add(float64(event.Skipped))
	}
}
