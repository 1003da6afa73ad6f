// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/naka-gawa/github-star-classifier/internal/config"
	"github.com/naka-gawa/github-star-classifier/internal/domain"
	"github.com/naka-gawa/github-star-classifier/internal/logger"
	"github.com/naka-gawa/github-star-classifier/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "star-classifier",
	Short: "A CLI tool to classify your starred GitHub repositories.",
	Long: `star-classifier fetches the repositories a GitHub user has starred,
assigns each one to a category by keyword and topic matching, and
summarizes the collection as JSON, CSV, Markdown and HTML reports.
It can also run classification jobs behind an HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Bind the flags of the command being run, so commands sharing a
		// flag name do not overwrite each other's binding.
		return viper.BindPFlags(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./.star-classifier.yaml or $HOME/.star-classifier.yaml)")
	rootCmd.PersistentFlags().String(config.KeyTaxonomy, "", "YAML taxonomy file replacing the built-in categories")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String(config.KeyLogFormat, "console", "Log format: console or json")
}

// initConfig points viper at the config file and registers defaults and
// environment bindings.
func initConfig() {
	configFile, _ := rootCmd.PersistentFlags().GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".star-classifier")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}
	config.SetDefaults(viper.GetViper())
}

// loadConfig merges defaults, config file, environment and flags.
func loadConfig() (config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return config.Load(viper.GetViper())
}

// newLogger builds the logger for a command from the resolved config.
// Quiet commands log nothing unless --verbose or --log-level is given.
func newLogger(cmd *cobra.Command, cfg config.Config, quiet bool) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := cfg.LogLevel
	if quiet && !cmd.Flags().Changed(config.KeyLogLevel) {
		level = "disabled"
	}
	return logger.New(logger.Options{
		Level:   level,
		Format:  cfg.LogFormat,
		Verbose: verbose,
		Writer:  cmd.ErrOrStderr(),
	})
}

// loadTaxonomy returns the configured taxonomy or the built-in one.
func loadTaxonomy(cfg config.Config) (domain.Taxonomy, error) {
	tax, err := usecase.LoadTaxonomy(cfg.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	return tax, nil
}
