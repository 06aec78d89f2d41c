// Apportal-sim runs a simulated captive-portal provisioning device.
//
// The device boots into its access point, serves the configuration portal
// over HTTP, answers captive DNS queries and, once configured, joins one
// of the simulated networks described by the profile. An interactive
// console lets the operator play the part of the phone and the router.
//
// Usage:
//
//	apportal-sim [command] [flags]
//
// See 'apportal-sim --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/apportal/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var profilePath string

var rootCmd = &cobra.Command{
	Use:   "apportal-sim",
	Short: "Captive-portal provisioning simulator",
	Long: `A host simulator for captive-portal Wi-Fi provisioning.

Runs the provisioning state machine against a simulated radio, serving the
configuration portal, the firmware updater and a live status websocket on
the local machine.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Device profile (default: user config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apportal-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}
