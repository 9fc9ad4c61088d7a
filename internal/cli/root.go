package cli

import (
	"fmt"
	"os"

	"github.com/ada-labs/swinstall/internal/branding"
	"github.com/ada-labs/swinstall/internal/config"
	"github.com/ada-labs/swinstall/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose   bool
	logFormat string

	// logger is built in PersistentPreRunE once flags are parsed.
	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` browses a remote software catalog and installs packages from it.

Container images are downloaded together with their launcher and icon;
native packages are installed through the system package manager.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		format, err := logging.ParseFormat(logFormat)
		if err != nil {
			return err
		}
		level := log.WarnLevel
		if verbose {
			level = log.DebugLevel
		}
		logger = logging.New(cmd.ErrOrStderr(), level, format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format (text, json)")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
