package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/ada-labs/swinstall/internal/config"
	"github.com/ada-labs/swinstall/internal/dispatch"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed container images",
	Long: `List container images installed under download_dir, with the version each
package's "current" link points at. Native packages are managed by the
system package manager and are not listed.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	settings, err := config.Current()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	installed, err := dispatch.Installed(settings.DownloadDir)
	if err != nil {
		return err
	}

	if listJSON {
		if installed == nil {
			installed = []dispatch.Installation{}
		}
		return printJSON(cmd, installed)
	}
	if len(installed) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tPATH")
	for _, in := range installed {
		fmt.Fprintf(w, "%s\t%s\t%s\n", in.Name, in.Version, in.Path)
	}
	return w.Flush()
}
