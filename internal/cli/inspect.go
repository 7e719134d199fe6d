/*
PURPOSE:
  Defines the 'inspect' subcommand.
  Prints a short summary of a mechanism file without contacting the evaluator.

REQUIREMENTS:
  User-specified:
  - Show what the reducer will work on (phases, species, reactions).

  Implementation-discovered:
  - Duplicate reaction groups matter for the reduction (survivors lose their marker);
    list them so users can spot them up front.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.LoadMechanismFile, internal/ranking.FromResult
  - Uses: internal/config (mechanism path when no argument is given)

ERROR HANDLING:
  - Returns error if the mechanism cannot be read or parsed.

USAGE:
  flame-speed inspect gri30.yaml
  flame-speed inspect --reactions gri30.yaml
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/flame-speed/internal/engine"
	"github.com/daryltucker/flame-speed/internal/mechanism"
	"github.com/daryltucker/flame-speed/internal/ranking"
)

var inspectReactions bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [mechanism]",
	Short: "Summarize a mechanism file",
	Long: `Prints the phases, species and reaction counts of a mechanism file together with its
duplicate reaction groups. Defaults to mechanism.path from the configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Mechanism.Path
		if len(args) == 1 {
			path = args[0]
		}

		doc, err := engine.LoadMechanismFile(path)
		if err != nil {
			return err
		}
		rank, err := ranking.FromResult(doc, make([]float64, len(doc.Reactions)))
		if err != nil {
			return fmt.Errorf("failed to index reactions: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Mechanism: %s\n", path)
		for _, p := range doc.Phases {
			fmt.Fprintf(out, "Phase:     %s\n", mechanism.PhaseName(p))
		}
		fmt.Fprintf(out, "Species:   %d\n", len(doc.Species))
		fmt.Fprintf(out, "Reactions: %d\n", rank.Len())

		if inspectReactions {
			fmt.Fprintln(out)
			for _, e := range rank.Entries() {
				fmt.Fprintf(out, "  %4d  %s\n", e.Index, e.Equation)
			}
		}

		dups := rank.Duplicates()
		if len(dups) == 0 {
			return nil
		}
		fmt.Fprintf(out, "\nDuplicate groups (%d):\n", len(dups))
		for _, eq := range dups {
			fmt.Fprintf(out, "  %-40s x%d\n", eq, len(rank.Lookup(eq)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectReactions, "reactions", false, "List every reaction with its index")
}
