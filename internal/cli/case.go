/*
PURPOSE:
  Defines the 'case' subcommand, the CFD case generator.
  Copies the case template into $FOAM_RUN/<name>, then renders the mesh dictionary and one
  species field per configured species.

REQUIREMENTS:
  User-specified:
  - The destination is $FOAM_RUN; fail clearly when it is not set.
  - Any existing case with the same name is replaced.

  Implementation-discovered:
  - Users without a template checkout still need a case; fall back to the template bundled
    in the binary when case.template_dir is empty.

ARCHITECTURE INTEGRATION:
  - Calls: internal/foamcase.Generator
  - Uses: internal/config, go-billy osfs

ERROR HANDLING:
  - Missing FOAM_RUN or template directory is returned as an error (exit code 1).

USAGE:
  FOAM_RUN=$HOME/run flame-speed case --name canal_ch4

RELATED FILES:
  - internal/foamcase/case.go
*/

package cli

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/foamcase"
	"github.com/daryltucker/flame-speed/internal/output"
)

var (
	caseName     string
	caseTemplate string
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Generate a CFD case under $FOAM_RUN",
	Long: `Copies the case template into $FOAM_RUN/<name>, writes the block mesh from the
configured geometry and one species field per entry of case.species.

An existing case with the same name is deleted first.`,
	Example: `  FOAM_RUN=$HOME/run flame-speed case
  flame-speed case --name canal_h2 --template ./canal_base`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if caseName != "" {
			cfg.Case.Name = caseName
		}
		if caseTemplate != "" {
			cfg.Case.TemplateDir = caseTemplate
		}

		foamRun, err := config.RequireEnv("FOAM_RUN")
		if err != nil {
			return err
		}
		template, err := caseTemplateFS(cfg.Case.TemplateDir)
		if err != nil {
			return err
		}

		gen := foamcase.NewGenerator(cfg.Case, template, osfs.New(foamRun))
		if err := gen.Generate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Case written to %s/%s\n", foamRun, cfg.Case.Name)
		return nil
	},
}

// caseTemplateFS opens the template directory, or the bundled template when dir is empty.
func caseTemplateFS(dir string) (fs.FS, error) {
	if dir == "" {
		output.Logger.Info("Using bundled case template")
		return foamcase.DefaultTemplate(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("case template not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("case template %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func init() {
	rootCmd.AddCommand(caseCmd)

	caseCmd.Flags().StringVar(&caseName, "name", "", "Case directory name under $FOAM_RUN")
	caseCmd.Flags().StringVar(&caseTemplate, "template", "", "Template directory (default: bundled template)")
}
