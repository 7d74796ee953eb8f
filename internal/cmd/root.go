package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/Iron-Ham/svcdeck/internal/cmd/config"
	"github.com/Iron-Ham/svcdeck/internal/cmd/project"
	"github.com/Iron-Ham/svcdeck/internal/cmd/session"
	"github.com/Iron-Ham/svcdeck/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "svcdeck",
	Short: "Run and supervise a project's local services",
	Long: `svcdeck starts the services declared in a project's manifest, streams
their output with a per-service prefix, and watches the project tree for
changes. Services in a remote environment (such as a WSL distribution
reached through a network path) are launched inside that environment.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/svcdeck/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	session.Register(rootCmd)
	project.Register(rootCmd)
	configcmd.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/svcdeck")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SVCDECK")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SVCDECK_SUPERVISOR_STOP_TIMEOUT_MS for supervisor.stop_timeout_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
