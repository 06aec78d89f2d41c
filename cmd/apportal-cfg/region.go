package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/apportal/internal/config"
	"github.com/muurk/apportal/internal/console"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/provision"
	"github.com/muurk/apportal/internal/simulator"
)

// Region command flags
var (
	showSecrets bool
	resetYes    bool
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(resetCmd)
}

// openRegion loads the profile and its config region. A region that fails
// to load is reported and opened with defaults.
func openRegion() (*config.Profile, *simulator.Offline, error) {
	profile, err := config.Load(profilePath)
	if err != nil {
		return nil, nil, err
	}
	off, err := simulator.OpenOffline(profile)
	if off == nil {
		return nil, nil, err
	}
	if err != nil {
		logging.Warn("Failed to load config region, using defaults", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Warning: %v (showing defaults)\n", err)
	}
	return profile, off, nil
}

// dumpCmd prints the stored configuration
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the stored configuration",
	Long: `Print every persisted parameter with its layout offset and value.

Password fields are hidden unless --show-secrets is given. A region without
a configuration for the current layout version shows the defaults.`,
	Example: `  # Dump the default profile's region
  apportal-cfg dump

  # Include passwords
  apportal-cfg dump --show-secrets`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print password values")
}

func runDump(cmd *cobra.Command, args []string) error {
	profile, off, err := openRegion()
	if err != nil {
		return err
	}

	state := "configured"
	if !off.Valid() {
		state = "not configured"
	}
	fmt.Println(console.NewHeader("Config region", "apportal-cfg dump",
		[2]string{"Thing", profile.Device.ThingName},
		[2]string{"Region", off.Path()},
		[2]string{"State", state},
	).Render())
	fmt.Println()

	out, err := off.Export(showSecrets)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// setCmd assigns parameter values
var setCmd = &cobra.Command{
	Use:   "set id=value [id=value...]",
	Short: "Set stored parameter values",
	Long: `Assign values to parameters in the config region and save it.

The assignments go through the same rules as the portal form: the thing
name needs at least 3 characters and a non-empty password at least 8.
Nothing is written unless every assignment is accepted. Values longer than
the field capacity are rejected.`,
	Example: `  # Point the device at a network
  apportal-cfg set wifiSsid=home wifiPassword=wifisecret

  # Set a custom parameter
  apportal-cfg set mqttServer=broker.local`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	_, off, err := openRegion()
	if err != nil {
		return err
	}

	values := make(map[string]string, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		if !ok || id == "" {
			return fmt.Errorf("invalid assignment %q (want id=value)", arg)
		}
		values[id] = value
	}

	if err := off.Update(values); err != nil {
		return err
	}
	fmt.Printf("Saved %d value(s) to %s\n", len(args), off.Path())
	return nil
}

// passwdCmd prompts for a password without echoing it
var passwdCmd = &cobra.Command{
	Use:   "passwd ap|wifi",
	Short: "Set the AP or WiFi password",
	Long: `Prompt for a password and store it in the config region.

The prompt does not echo. Passwords must be at least 8 characters, the
same rule the portal form applies.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ap", "wifi"},
	RunE:      runPasswd,
}

func runPasswd(cmd *cobra.Command, args []string) error {
	var id string
	switch args[0] {
	case "ap":
		id = provision.ParamAPPassword
	case "wifi":
		id = provision.ParamWifiPassword
	default:
		return fmt.Errorf("unknown password %q (want ap or wifi)", args[0])
	}

	_, off, err := openRegion()
	if err != nil {
		return err
	}

	password, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if password == "" {
		return fmt.Errorf("empty password, nothing changed")
	}

	if err := off.Update(map[string]string{id: password}); err != nil {
		return err
	}
	fmt.Printf("%s password saved\n", strings.ToUpper(args[0]))
	return nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("passwd needs a terminal")
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// resetCmd erases the config region
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase the stored configuration",
	Long: `Erase the config region. The next boot starts unconfigured with the
initial AP password.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Do not ask for confirmation")
}

func runReset(cmd *cobra.Command, args []string) error {
	_, off, err := openRegion()
	if err != nil {
		return err
	}

	if !resetYes {
		fmt.Printf("Erase %s? [y/N] ", off.Path())
		var answer string
		fmt.Scanln(&answer)
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := off.Reset(); err != nil {
		return err
	}
	fmt.Printf("Erased %s\n", off.Path())
	return nil
}
