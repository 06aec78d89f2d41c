// Apportal-cfg inspects and edits the stored configuration of an apportal
// device and finds devices on the local network.
//
// Region commands (dump, set, passwd, reset) work on the config region
// named by the device profile and must be run while the simulator is
// stopped. Network commands (scan, watch) talk to running devices.
//
// Usage:
//
//	apportal-cfg [command] [flags]
//
// See 'apportal-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	profilePath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "apportal-cfg",
	Short: "Apportal configuration utility",
	Long: `A utility for apportal device configuration.

Dumps and edits the persisted configuration region, discovers devices over
mDNS and follows their provisioning state over the status websocket.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Device profile (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $APPORTAL_LOG_LEVEL")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apportal-cfg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
