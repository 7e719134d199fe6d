package cli

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/daryltucker/flame-speed/internal/foamcase"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the case template",
}

var templateInstallCmd = &cobra.Command{
	Use:   "install <dir>",
	Short: "Write the bundled case template to a directory for editing",
	Long: `Writes the case template bundled in the binary to <dir>. Point case.template_dir at
the result to generate cases from the edited copy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		n, err := foamcase.Install(osfs.New(dir))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed %d template files to %s\n", n, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateInstallCmd)
}
