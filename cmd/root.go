package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/accel-pim/pimsim/sim"
	_ "github.com/accel-pim/pimsim/sim/engine"
	"github.com/accel-pim/pimsim/sim/simerr"
	"github.com/accel-pim/pimsim/sim/trace"
	"github.com/accel-pim/pimsim/sim/workload"
)

var (
	// CLI flags for the run command
	configPath      string // YAML or TOML session config
	commandListPath string // accel-sim kernelslist.g
	graphPath       string // .onnx model, .pb graph or YAML graph
	descriptorsPath string // PIM descriptor stream, one line per layer
	window          int    // admission window override
	maxCycles       int64  // engine cycle ceiling override
	markerCachePath string // marker cache snapshot override
	traceLevel      string // decision trace level override
	logLevel        string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "pimsim",
	Short: "Trace-driven PIM/GPU simulation driver",
}

// runCmd executes a simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a command list (and optional graph and PIM descriptors) to completion",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := sessionConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if commandListPath == "" {
			logrus.Fatalf("No command list provided. Exiting simulation.")
		}
		if err := runSimulation(cmd.Context(), cfg, runInputPaths{
			commandList: commandListPath,
			graph:       graphPath,
			descriptors: descriptorsPath,
		}, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// sessionConfig loads --config (or the defaults) and applies any flag the
// user set explicitly.
func sessionConfig(cmd *cobra.Command) (sim.SessionConfig, error) {
	cfg := sim.DefaultSessionConfig()
	if configPath != "" {
		var err error
		if cfg, err = sim.LoadSessionConfig(configPath); err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("window") {
		if window <= 0 {
			return cfg, simerr.New(simerr.CapacityExceeded, "cmd.run", "--window must be positive, got %d", window)
		}
		cfg.Window.ConcurrentKernelSM = window > 1
		cfg.Window.MaxConcurrentKernels = window
	}
	if flags.Changed("max-cycles") {
		cfg.Limits.MaxCycles = maxCycles
	}
	if flags.Changed("marker-cache") {
		cfg.Pim.MarkerCachePath = markerCachePath
	}
	if flags.Changed("trace-level") {
		cfg.Trace.Level = trace.TraceLevel(traceLevel)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid session config: %w", err)
	}
	return cfg, nil
}

// runSimulation loads every input, runs one session and writes the report to out.
func runSimulation(ctx context.Context, cfg sim.SessionConfig, paths runInputPaths, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	in, err := loadRunInputs(ctx, paths)
	if err != nil {
		return err
	}

	reader := workload.NewReader()
	s, err := sim.NewSessionFromConfig(cfg, reader)
	if err != nil {
		return err
	}
	if err := s.Init(in.commands); err != nil {
		return err
	}
	if in.graph != nil {
		if err := s.BindGraphSpec(in.graph); err != nil {
			return fmt.Errorf("binding graph %s: %w", paths.graph, err)
		}
	}
	for i, line := range in.descriptors {
		if _, err := s.AddDescriptor(line); err != nil {
			return fmt.Errorf("%s: descriptor %d: %w", paths.descriptors, i+1, err)
		}
	}

	logrus.Infof("Starting simulation: %d commands, %d PIM layers, window %d, max cycles %d",
		len(in.commands), len(s.Layers()), cfg.Window.Size(), cfg.Limits.MaxCycles)
	if err := s.Run(ctx); err != nil {
		return err
	}

	s.Metrics().Print(out)
	if st := s.Trace(); st != nil {
		printTraceSummary(out, trace.Summarize(st))
	}
	if open := reader.Open(); open > 0 {
		logrus.Warnf("%d kernel traces still open after the run", open)
	}
	return nil
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Admissions           : %d\n", ts.TotalAdmissions)
	fmt.Fprintf(w, "Retirements          : %d (%d forced)\n", ts.TotalRetirements, ts.ForcedRetirements)
	fmt.Fprintf(w, "Streams Used         : %d\n", ts.UniqueStreams)
	fmt.Fprintf(w, "Mean Residency       : %.2f cycles (max %d)\n", ts.MeanResidency, ts.MaxResidency)
	fmt.Fprintf(w, "PIM Layers Traced    : %d\n", ts.PimLayersLaunched)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Session config file (.yaml or .toml)")
	runCmd.Flags().StringVar(&commandListPath, "commandlist", "", "Command list (kernelslist.g)")
	runCmd.Flags().StringVar(&graphPath, "graph", "", "Network graph to bind (.onnx, .pb or .yaml)")
	runCmd.Flags().StringVar(&descriptorsPath, "descriptors", "", "PIM descriptor stream to feed before the run")
	runCmd.Flags().IntVar(&window, "window", sim.DefaultMaxConcurrentKernels, "Admission window size (1 disables concurrent kernels)")
	runCmd.Flags().Int64Var(&maxCycles, "max-cycles", 0, "Engine cycle ceiling (0 = none)")
	runCmd.Flags().StringVar(&markerCachePath, "marker-cache", "", "Marker cache snapshot, loaded before and saved after the run")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(versionCmd)
}
