package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "plasmamesh",
	Short: "Distributed structured mesh diagnostics",
	Long: `
Builds the processor decomposition of a structured plasma grid and checks the
halo exchange, metric and derivative operators on it.

plasmamesh decomp -I mesh.yaml -n 4
plasmamesh verify -I mesh.yaml -n 4`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if p, _ := cmd.Flags().GetBool("profile"); p {
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.plasmamesh.yaml)")
	rootCmd.PersistentFlags().Bool("profile", false, "write a CPU profile to the current directory")
	rootCmd.PersistentFlags().String("log", "warn", "log level: debug, info, warn or error")
}

// initConfig reads in the config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".plasmamesh")
	}
	viper.SetEnvPrefix("plasmamesh")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	name, _ := cmd.Flags().GetString("log")
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		fmt.Printf("error: log level %q, using warn\n", name)
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
