// Command ktune drives the autotuning engine against the built-in demo
// kernel catalogue (internal/demo), the way cmd/example drove GUDA's own
// bundled examples by name.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/accel-tune/ktune"
	"github.com/accel-tune/ktune/internal/demo"
)

func main() {
	app := &cli.Command{
		Name:  "ktune",
		Usage: "autotune compute kernels against a pluggable execution engine",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			tuneCmd(),
			runCmd(),
			validateConfigCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func kernelNames() []string {
	names := make([]string, 0, len(demo.Catalogue))
	for name := range demo.Catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadKernel(name string, size int) (*demo.Kernel, error) {
	build, ok := demo.Catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown kernel %q, available: %s", name, strings.Join(kernelNames(), ", "))
	}
	return build(size), nil
}

func loggerFor(level ktune.LoggingLevel) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case ktune.LoggingDebug:
		slogLevel = slog.LevelDebug
	case ktune.LoggingInfo:
		slogLevel = slog.LevelInfo
	case ktune.LoggingWarning:
		slogLevel = slog.LevelWarn
	case ktune.LoggingError:
		slogLevel = slog.LevelError
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 100}))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func writeResults(format string, results []ktune.TuningResult) error {
	reporter := ktune.NewReporter()
	switch format {
	case "csv":
		return reporter.WriteCSV(os.Stdout, results)
	case "json":
		return reporter.WriteJSON(os.Stdout, results)
	default:
		return reporter.WriteVerbose(os.Stdout, results)
	}
}

func tuneCmd() *cli.Command {
	var (
		kernelName string
		size       int
		configPath string
		format     string
		seed       int64
	)

	return &cli.Command{
		Name:  "tune",
		Usage: "search the parameter space of a demo kernel and report results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "kernel",
				Aliases:     []string{"k"},
				Usage:       fmt.Sprintf("kernel to tune (%s)", strings.Join(kernelNames(), ", ")),
				Value:       "vectoradd",
				Destination: &kernelName,
			},
			&cli.IntFlag{
				Name:        "size",
				Usage:       "problem size (element count)",
				Value:       1 << 20,
				Destination: &size,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a YAML TunerConfig file",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format: verbose, csv, json",
				Value:       "verbose",
				Destination: &format,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "search RNG seed",
				Value:       1,
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(configPath)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log := loggerFor(cfg.LoggingLevel)

			k, err := loadKernel(kernelName, size)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log.Info("loaded kernel", "name", k.Name, "size", size)

			cfg.ApplyToEngine(k.Engine, true)
			if err := k.Registry.SetSearchMethod(k.Id, cfg.SearchMethod, cfg.SearchArguments); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if err := k.Registry.SetValidationMethod(k.Id, cfg.ValidationMethod, cfg.ToleranceThreshold); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			runner := k.NewRunner()
			runner.SetSeed(seed)
			runner.SetLaunchLimiter(cfg.LaunchLimiter())

			log.Info("tuning started", "kernel", k.Name)
			results, err := runner.TuneKernel(k.Id)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			log.Info("tuning finished", "configurations", len(results))

			if err := writeResults(format, results); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if best, ok := ktune.BestOf(results); ok {
				fmt.Printf("\nbest: %s -> %dns\n", kernelName, best.DurationNs)
			}
			return nil
		},
	}
}

func runCmd() *cli.Command {
	var (
		kernelName string
		size       int
		wgSize     int
	)

	return &cli.Command{
		Name:  "run",
		Usage: "run one fixed configuration of a demo kernel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "kernel",
				Aliases:     []string{"k"},
				Usage:       fmt.Sprintf("kernel to run (%s)", strings.Join(kernelNames(), ", ")),
				Value:       "vectoradd",
				Destination: &kernelName,
			},
			&cli.IntFlag{
				Name:        "size",
				Usage:       "problem size (element count)",
				Value:       1 << 20,
				Destination: &size,
			},
			&cli.IntFlag{
				Name:        "work-group-size",
				Usage:       "WORK_GROUP_SIZE value to run",
				Value:       256,
				Destination: &wgSize,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			k, err := loadKernel(kernelName, size)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			runner := k.NewRunner()
			values := map[string]int{"WORK_GROUP_SIZE": wgSize}
			if kernelName == "vectoradd" {
				values["N"] = size
			}

			result, err := runner.RunKernel(k.Id, values, nil)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return writeResults("verbose", []ktune.TuningResult{result})
		},
	}
}

func validateConfigCmd() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:  "validate-config",
		Usage: "parse and validate a YAML TunerConfig file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a YAML TunerConfig file",
				Destination: &configPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if configPath == "" {
				return cli.Exit("--config is required", 1)
			}
			cfg, err := ktune.LoadTunerConfig(configPath)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Printf("valid: validation=%v tolerance=%g search=%v globalSizeType=%v maxLaunchesPerSecond=%g\n",
				cfg.ValidationMethod, cfg.ToleranceThreshold, cfg.SearchMethod, cfg.GlobalSizeType, cfg.MaxLaunchesPerSecond)
			return nil
		},
	}
}

func resolveConfig(path string) (ktune.TunerConfig, error) {
	if path == "" {
		return ktune.DefaultTunerConfig(), nil
	}
	return ktune.LoadTunerConfig(path)
}
