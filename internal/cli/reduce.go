/*
PURPOSE:
  Defines the 'reduce' and 'sweep' subcommands.
  'reduce' produces the reduced mechanism; 'sweep' also writes the flame-speed report.

REQUIREMENTS:
  User-specified:
  - Reduce the mechanism once; skip when the reduced mechanism already exists.
  - Sweep the mixture fraction and report both mechanisms.
  - specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load fails or engine run fails.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Engine.Run.

USAGE:
  flame-speed reduce --tolerance 0.005
  flame-speed sweep -o s3://bucket/ch4

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/engine"
)

// overrides are the flags shared by reduce and sweep.
type overrides struct {
	evaluator string
	outputDir string
	mechanism string
	phase     string
	tolerance float64
	maxIter   int
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.evaluator, "evaluator", "", "Flame evaluator URL")
	cmd.Flags().StringVarP(&o.outputDir, "output-dir", "o", "", "Output directory or s3://bucket/prefix")
	cmd.Flags().StringVarP(&o.mechanism, "mechanism", "m", "", "Complete mechanism (YAML)")
	cmd.Flags().StringVar(&o.phase, "phase", "", "Phase name inside the mechanism")
	cmd.Flags().Float64Var(&o.tolerance, "tolerance", 0, "Flame speed tolerance in m/s")
	cmd.Flags().IntVar(&o.maxIter, "max-iterations", 0, "Maximum number of removals")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.evaluator != "" {
		cfg.EvaluatorURL = o.evaluator
	}
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if o.mechanism != "" {
		cfg.Mechanism.Path = o.mechanism
	}
	if o.phase != "" {
		cfg.Mechanism.Phase = o.phase
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Reduction.Tolerance = o.tolerance
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.Reduction.MaxIterations = o.maxIter
	}
}

var (
	reduceFlags overrides
	sweepFlags  overrides

	sweepStart, sweepStop, sweepStep float64
)

var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Reduce the mechanism (skipped when the reduced mechanism exists)",
	Long: `Evaluates the complete mechanism once, then removes the reaction with the smallest
peak normalized net rate of progress until the flame speed leaves the tolerance.
The last accepted mechanism is written to <output-dir>/modified_mechanism.yaml and every
step to <output-dir>/reduction_trace.jsonl.

If modified_mechanism.yaml already exists the reduction is skipped.`,
	Example: `  # Reduce with defaults (uses flame_speed.yaml)
  flame-speed reduce

  # Tighter tolerance, results in S3
  flame-speed reduce --tolerance 0.005 -o s3://mechanisms/ch4`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reduceFlags.apply(cmd, cfg)
		return engine.Run(cmd.Context(), cfg, engine.ModeReduce)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reduce if needed, then compare both mechanisms over the mixture fraction",
	Long: `Evaluates the reduced and the complete mechanism at every mixture fraction between
--start and --stop (plus the stoichiometric point) and writes flame_speed_data.csv.
Failed points are written as zeros with the evaluator message.`,
	Example: `  flame-speed sweep
  flame-speed sweep --stop 0.1 --step 0.01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sweepFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("start") {
			cfg.Sweep.Start = sweepStart
		}
		if cmd.Flags().Changed("stop") {
			cfg.Sweep.Stop = sweepStop
		}
		if cmd.Flags().Changed("step") {
			cfg.Sweep.Step = sweepStep
		}
		return engine.Run(cmd.Context(), cfg, engine.ModeSweep)
	},
}

func init() {
	rootCmd.AddCommand(reduceCmd)
	rootCmd.AddCommand(sweepCmd)

	reduceFlags.register(reduceCmd)
	sweepFlags.register(sweepCmd)

	sweepCmd.Flags().Float64Var(&sweepStart, "start", 0, "First mixture fraction")
	sweepCmd.Flags().Float64Var(&sweepStop, "stop", 0, "Last mixture fraction")
	sweepCmd.Flags().Float64Var(&sweepStep, "step", 0, "Mixture fraction step")
}
