package cmd

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lattice-mc/lattice-mc/mc"
	"github.com/lattice-mc/lattice-mc/mc/ising"
)

var (
	// CLI flags for the Ising demo run
	seed        int64   // Seed for all random number streams
	logLevel    string  // Log verbosity level
	rows        int     // Lattice rows
	cols        int     // Lattice columns
	fillValue   int     // Initial occupation of every site (+1 or -1)
	temperature float64 // Temperature in K
	mu          float64 // Exchange potential
	coupling    float64 // Ising coupling constant J
	configPath  string  // YAML sampling/completion configuration file
	resultsPath string  // Where to write the results JSON ("-" = stdout)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "lattice-mc",
	Short: "Monte Carlo simulation engine for lattice occupation problems",
}

// runCmd executes a semi-grand canonical Ising run using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Ising semi-grand canonical demo",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if fillValue != 1 && fillValue != -1 {
			logrus.Fatalf("Initial occupation must be +1 or -1, got %d", fillValue)
		}

		calculator := ising.NewCalculator(ising.NewSystem(
			ising.NewFormationEnergy(coupling),
			ising.NewParamComposition(),
		))
		functions := calculator.DefaultSamplingFunctions()

		fixtureParams, err := loadFixtureParams(configPath, functions)
		if err != nil {
			logrus.Fatalf("Invalid run configuration: %v", err)
		}

		logrus.Infof("Starting %dx%d Ising run with T=%gK, mu=%g, J=%g, seed=%d",
			rows, cols, temperature, mu, coupling, seed)

		state := ising.NewState(rows, cols, fillValue, temperature, mu)
		rng := mc.NewPartitionedRNG(mc.NewSimulationKey(seed))
		if err := calculator.Run(state, fixtureParams, rng); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}

		if err := writeResults(calculator.Results, resultsPath); err != nil {
			logrus.Fatalf("Writing results failed: %v", err)
		}
		logrus.Info("Run complete.")
	},
}

// loadFixtureParams builds the sampling fixture from the YAML configuration
// file, or from built-in defaults when no file is given: by-pass linear
// sampling of every quantity, at least 100 samples, convergence of the
// potential energy and parametric composition to 1e-3.
func loadFixtureParams(path string, functions map[string]mc.StateSamplingFunction) ([]mc.SamplingFixtureParams, error) {
	functionNames := make(map[string]bool, len(functions))
	quantities := make([]string, 0, len(functions))
	for name := range functions {
		functionNames[name] = true
		quantities = append(quantities, name)
	}
	sort.Strings(quantities)

	var cfg *mc.RunConfig
	if path != "" {
		loaded, err := mc.LoadRunConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		period := 1.0
		minSample := int64(100)
		precision := 1e-3
		checkPeriod := 10.0
		cfg = &mc.RunConfig{
			Sampling: mc.SamplingConfig{
				SampleBy:   "pass",
				Period:     &period,
				Quantities: quantities,
			},
			Completion: mc.CompletionConfig{
				Cutoff: mc.CutoffConfig{
					Sample: mc.MinMaxIntConfig{Min: &minSample},
				},
				Begin:  100,
				Period: &checkPeriod,
				Convergence: []mc.ConvergenceConfig{
					{Quantity: "potential_energy", AbsPrecision: &precision},
					{Quantity: "param_composition", AbsPrecision: &precision},
				},
			},
		}
	}

	samplingParams, err := cfg.Sampling.SamplingParams(functionNames, false)
	if err != nil {
		return nil, err
	}
	completionParams, err := cfg.Completion.CompletionCheckParams(functions)
	if err != nil {
		return nil, err
	}
	return []mc.SamplingFixtureParams{{
		Label:            "thermo",
		SamplingParams:   samplingParams,
		CompletionParams: completionParams,
		Functions:        functions,
	}}, nil
}

// writeResults marshals the per-fixture results as JSON.
func writeResults(results map[string]*mc.RunResults, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for all random number streams")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Ising model configs
	runCmd.Flags().IntVar(&rows, "rows", 25, "Lattice rows")
	runCmd.Flags().IntVar(&cols, "cols", 25, "Lattice columns")
	runCmd.Flags().IntVar(&fillValue, "fill", 1, "Initial occupation of every site (+1 or -1)")
	runCmd.Flags().Float64Var(&temperature, "temperature", 2000.0, "Temperature in K")
	runCmd.Flags().Float64Var(&mu, "mu", 0.0, "Exchange potential")
	runCmd.Flags().Float64Var(&coupling, "coupling", 0.1, "Ising coupling constant J")

	// sampling and completion configs
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML sampling/completion configuration file")
	runCmd.Flags().StringVar(&resultsPath, "results", "-", "Where to write the results JSON (\"-\" = stdout)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
