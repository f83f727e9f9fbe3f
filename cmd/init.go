package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/LumeraProtocol/arprov/internal/config"
	"github.com/LumeraProtocol/arprov/internal/provider/profile"
)

var (
	forceInit       bool
	initInteractive bool
	initProvider    string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default arprov configuration",
	Long: `Write a configuration file with default values. With --provider profile
an example device profile is written next to it.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Choose the provider interactively")
	initCmd.Flags().StringVar(&initProvider, "provider", config.DefaultProviderType, "Capability provider: adb or profile")
}

// selectProvider asks for the provider type. Replaced in tests.
var selectProvider = func(def string) (string, error) {
	choice := def
	prompt := &survey.Select{
		Message: "Capability provider:",
		Options: []string{config.ProviderADB, config.ProviderProfile},
		Default: def,
	}
	return choice, survey.AskOne(prompt, &choice)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigFileName
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("config already exists at %s. Use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	cfg.Provider.Type = initProvider
	if initInteractive {
		choice, err := selectProvider(initProvider)
		if err != nil {
			return err
		}
		cfg.Provider.Type = choice
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	if cfg.Provider.Type == config.ProviderProfile {
		profilePath := cfg.Provider.ProfilePath
		if !filepath.IsAbs(profilePath) {
			profilePath = filepath.Join(filepath.Dir(path), profilePath)
		}
		if _, err := os.Stat(profilePath); os.IsNotExist(err) {
			if err := profile.Save(profile.Example(), profilePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example device profile %s\n", profilePath)
		}
	}
	return nil
}
