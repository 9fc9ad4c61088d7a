package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Remove an installed container image",
	Long:  `Remove every installed version of a container image with its launcher and icon.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	e, err := loadEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	name := args[0]
	if err := dispatch.Uninstall(e.paths(), name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s is not installed", name)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
	return nil
}
