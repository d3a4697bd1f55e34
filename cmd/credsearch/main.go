// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the credsearch CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	seclog "github.com/pdiddy/credsearch/internal/log"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is replaced by the root command before any subcommand runs.
var logger = seclog.Discard()

// rootCmd is the base command for the credsearch CLI.
var rootCmd = &cobra.Command{
	Use:   "credsearch",
	Short: "Search DeHashed for leaked credentials and crack the hashes found",
	Long: `credsearch queries the DeHashed API for records tied to a domain or email
address, detects which fields hold password hashes, and optionally cracks
them with a locally installed hashcat or John the Ripper. Cracked plaintexts
are merged back into the records and exported as CSV, JSON, YAML, or a
Markdown report.

Rate-limited searches are retried with exponential backoff, honouring the
server's Retry-After header.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Root().PersistentFlags()
		verbose, _ := flags.GetBool("verbose")
		jsonLogs, _ := flags.GetBool("log-json")
		if jsonLogs {
			logger = seclog.NewSecureJSONLogger(os.Stderr, verbose)
		} else {
			logger = seclog.NewSecureLogger(os.Stderr, verbose)
		}
		slog.SetDefault(logger)

		if noColor, _ := flags.GetBool("no-color"); noColor {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./credsearch.yaml or $XDG_CONFIG_HOME/credsearch/credsearch.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("credsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "credsearch"))
	}

	viper.SetEnvPrefix("CREDSEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("search.api_key", "CREDSEARCH_SEARCH_API_KEY", "DEHASHED_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
