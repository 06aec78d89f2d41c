package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/apportal/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default profile",
	Long: `Write a default device profile with one simulated network.

Edit the file afterwards to add parameters, change the thing name or point
the config region elsewhere.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing profile")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := profilePath
	if path == "" {
		var err error
		if path, err = config.GetProfilePath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("profile %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	profile := config.NewProfile()
	profile.Simulator.Networks = []config.NetworkConfig{{SSID: "home", Password: "wifisecret"}}
	profile.Parameters = []config.ParameterConfig{
		{Separator: true, Label: "MQTT"},
		{ID: "mqttServer", Label: "MQTT server", Capacity: 64, Placeholder: "broker.local"},
		{ID: "mqttPort", Label: "MQTT port", Capacity: 6, Kind: "number", Default: "1883"},
	}
	if err := profile.Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}
