package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/LumeraProtocol/arprov/internal/config"
	"github.com/LumeraProtocol/arprov/pkg/logtrace"
)

var (
	// Version info passed from main
	appVersion   string
	appGitCommit string
	appBuildTime string

	// Global flags
	cfgFile string
	debug   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "arprov",
	Short: "AR runtime capability provisioning",
	Long: `arprov decides whether AR features can run on a device.

It queries the device (over adb, or from a YAML device profile), retries
inconclusive answers with exponential backoff and reports one of:
- proceed: the AR runtime is present and current
- prompt_install: the runtime must be installed or updated first
- disable: the device cannot run AR
- retry: no definitive answer within the attempt budget`,
	SilenceUsage: true,
}

// Execute adds all child commands and executes the root command
func Execute(ver, commit, built string) error {
	appVersion = ver
	appGitCommit = commit
	appBuildTime = built

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigFileName+" when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// configPath resolves the --config flag, falling back to the default file
// in the working directory.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat(config.DefaultConfigFileName); err == nil {
		return config.DefaultConfigFileName
	}
	return ""
}

func setupLogging(cfg *config.Config, env string) {
	level := logtrace.ParseLevel(cfg.Log.Level)
	if debug {
		level = zapcore.DebugLevel
	}
	logtrace.Setup("arprov", env, level)
}
