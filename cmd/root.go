// Package cmd provides the CLI commands for Remindbot.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/remindbot/internal/config"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
	"github.com/manav03panchal/remindbot/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagOwner   string
	flagDB      string
	flagBackend string
	flagConfig  string
	flagFormat  string
	flagColor   string
	flagDebug   bool
)

// annotationNoStore marks commands that must not open the database,
// such as the daemon commands which leave the store to the daemon process.
const annotationNoStore = "no-store"

var (
	// cfg is the effective configuration for this invocation.
	cfg *config.RuntimeConfig

	// out renders results for commands that run without a store.
	out *output.Formatter

	// ctx is the shared runtime context.
	ctx *runtime.Context

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "remindbot",
	Short: "Tasks, events and reminders from the command line or Telegram",
	Long: `Remindbot keeps a per-owner task list and event calendar and reminds
you shortly before each event starts.

Examples:
  remindbot task add Buy milk
  remindbot event add "Team sync" 2024-08-23 14:30
  remindbot event add Standup tomorrow 9am
  remindbot event list
  remindbot daemon start`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup loads configuration and, unless the command opts out, opens the
// store.
func setup(cmd *cobra.Command, args []string) error {
	// Skip initialization for completion and help commands (but allow __complete for dynamic completions)
	if cmd.Name() == "completion" || cmd.Name() == "help" {
		return nil
	}
	cfg, out, ctx = nil, nil, nil

	if flagDebug {
		logging.InitDebug()
	}

	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}
	logging.DebugLog("config loaded",
		logging.KeyOwner, cfg.Owner, logging.KeyBackend, cfg.Storage.Backend, "path", cfg.StoragePath())

	format, err := output.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	colorMode, err := output.ParseColorMode(flagColor)
	if err != nil {
		return err
	}

	out = output.NewFormatter()
	out.Writer = stdout
	out.Format = format
	out.ColorMode = colorMode
	out.Location = cfg.Location

	if needsNoStore(cmd) {
		return nil
	}

	opts := runtime.DefaultOptions()
	opts.Format = format
	opts.ColorMode = colorMode
	opts.Writer = stdout
	opts.Debug = flagDebug

	ctx, err = runtime.New(cfg, opts)
	return err
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (*config.RuntimeConfig, error) {
	c, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagOwner != "" {
		c.Owner = flagOwner
	}
	if flagBackend != "" {
		c.Storage.Backend = strings.ToLower(flagBackend)
	}
	if flagDB != "" {
		c.Storage.Path = flagDB
	}
	return c, nil
}

func needsNoStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationNoStore]; ok {
			return true
		}
	}
	return false
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	if ctx != nil {
		if cerr := ctx.Close(); cerr != nil && err == nil {
			err = cerr
		}
		ctx = nil
	}
	return err
}

// printError writes err in the selected output format.
func printError(err error) {
	if out != nil && out.Format == output.FormatJSON {
		_ = out.JSON(runtime.ErrorResponse(err))
		return
	}
	fmt.Fprintln(stderr, "Error: "+runtime.FormatError(err))
}

// forwardedFlags returns the global flags a re-executed child process needs
// to see the same configuration.
func forwardedFlags() []string {
	var args []string
	for _, f := range []struct{ name, value string }{
		{"config", flagConfig},
		{"db", flagDB},
		{"backend", flagBackend},
	} {
		if f.value != "" {
			args = append(args, "--"+f.name, f.value)
		}
	}
	return args
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagOwner, "owner", "",
		"Owner to act for (default: $REMINDBOT_OWNER or the OS user)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "",
		"Database path (default: under $XDG_DATA_HOME/remindbot)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "",
		"Storage backend: sqlite, badger")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"Config file (default: $XDG_CONFIG_HOME/remindbot/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")

	// Add commands
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{annotationNoStore: ""},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("remindbot %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
		cmd.Println("")
		cmd.Println("Based on Zeit (https://github.com/mrusme/zeit)")
		cmd.Println("Licensed under SEGV License v1.0")
	},
}
