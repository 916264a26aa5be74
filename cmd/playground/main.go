package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/a-peyrard/objbuilder"
	"github.com/a-peyrard/objbuilder/config"
	"github.com/a-peyrard/objbuilder/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "playground",
		Usage: "Bake pizzas from a configured prototype",
		Description: `Loads a prototype pizza from the environment (PIZZA_SIZE, PIZZA_SLICES, PIZZA_TOPPINGS)
and an optional configuration file, registers a few modifications and builds --count pizzas concurrently.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file of the prototype pizza",
			},
			&cli.StringFlag{
				Name:  "size",
				Usage: "Size of the pizzas, overrides the prototype",
			},
			&cli.BoolFlag{
				Name:  "extra-cheese",
				Usage: "Add cheese on top of the prototype toppings",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Number of pizzas to bake",
				Value: 3,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of pizzas baked at the same time, 0 for no limit",
				Value: 2,
			},
		},
		Action: bake,
	}
}

func bake(ctx context.Context, cmd *cli.Command) error {
	out := cmd.ErrWriter
	if out == nil {
		out = os.Stderr
	}
	logger, err := newLogger(out, cmd.String("log-level"))
	if err != nil {
		return err
	}

	prototype, err := config.Load[Pizza](
		config.WithEnvPrefix("PIZZA"),
		config.WithFile(cmd.String("config")),
	)
	if err != nil {
		return fmt.Errorf("failed to load prototype pizza:\n\t%w", err)
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return err
	}

	b := objbuilder.FromPrototype(
		prototype,
		(*Pizza).Clone,
		objbuilder.Named("pizza"),
		objbuilder.WithLogger(logger),
		objbuilder.WithObserver(collector),
	)
	if size := cmd.String("size"); size != "" {
		objbuilder.Set(b, size, (*Pizza).SetSize)
	}
	objbuilder.SetIf(b, "cheese", (*Pizza).AddTopping, func(*Pizza, string) bool {
		return cmd.Bool("extra-cheese")
	})
	b.ModifyIf(
		func(p *Pizza) { p.Slices = 12 },
		objbuilder.When[*Pizza]("Size").Equals("large"),
	)
	b.Try((*Pizza).Validate)

	pizzas, err := objbuilder.BuildMany(
		ctx,
		b,
		int(cmd.Int("count")),
		objbuilder.WithConcurrency(int(cmd.Int("concurrency"))),
	)
	if err != nil {
		return fmt.Errorf("failed to bake pizzas:\n\t%w", err)
	}

	for i, p := range pizzas {
		logger.Info().
			Int("pizza", i).
			Str("size", p.Size).
			Int("slices", p.Slices).
			Strs("toppings", p.Toppings).
			Msg("pizza ready")
	}

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics:\n\t%w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			event := logger.Debug().Str("metric", family.GetName())
			switch {
			case metric.GetCounter() != nil:
				event = event.Float64("value", metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				event = event.Uint64("count", metric.GetHistogram().GetSampleCount())
			}
			for _, label := range metric.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			event.Msg("builder metric")
		}
	}
	return nil
}
