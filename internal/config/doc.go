// Package config loads the device profile used by the apportal tools.
//
// A profile is a YAML file describing one simulated or real device: the
// compiled-in provisioning settings, where the config region lives, the
// portal, DNS and mDNS listeners, the simulated radio environment, and the
// user parameters appended after the built-in ones.
//
// # Profile Location
//
// The profile is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/apportal/profile.yaml or $HOME/.config/apportal/profile.yaml
//   - macOS: $HOME/.config/apportal/profile.yaml
//   - Windows: %LOCALAPPDATA%\apportal\profile.yaml
//
// Every tool accepts --profile to use another file.
//
// # Security
//
// Wi-Fi and AP passwords entered through the portal live in the config
// region only. The profile holds the compiled-in initial AP password and,
// for the simulator, the passwords of the simulated networks.
//
// # Usage Example
//
//	profile, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := profile.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	params, err := profile.BuildParameters()
package config
