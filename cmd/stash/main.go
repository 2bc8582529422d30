// Package main is the stash command line tool: a thin shell over the
// stash library for inspecting and mutating key-value tables from
// scripts and terminals.
//
// Configuration resolves flags first, then STASH_* environment variables
// (optionally loaded from .env files), then defaults.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stashkv/stash"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "stash",
		Short: "persistent key-value stash backed by SQLite",
		Long: fmt.Sprintf(`stash (v%s)

A lightweight persistent key-value store on an embedded SQLite database,
with TTL expiry, atomic counters, transactions and chunked iteration.`, version),
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of stash",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stash v%s\n", version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("dir", defaultDir(), "root directory holding stash databases")
	rootCmd.PersistentFlags().String("database", stash.DefaultDatabase, "database file name inside the root directory")
	rootCmd.PersistentFlags().String("table", stash.DefaultTable, "table name inside the database")
	rootCmd.PersistentFlags().Bool("debug", false, "log engine activity as JSON on stderr")

	rootCmd.AddCommand(
		versionCmd,
		setCmd, getCmd, hasCmd, delCmd, pullCmd,
		incrCmd, decrCmd,
		keysCmd, clearCmd, sweepCmd, statsCmd,
		benchCmd,
	)
}

// initConfig wires environment variables into viper.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("stash")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

// defaultDir is ~/.stash, falling back to the working directory when the
// home directory is unknown.
func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".stash")
}

// openStash opens the handle described by the resolved configuration.
func openStash() (*stash.Stash, error) {
	opts := []stash.Option{
		stash.WithDatabase(viper.GetString("database")),
		stash.WithTable(viper.GetString("table")),
	}
	if viper.GetBool("debug") {
		opts = append(opts, stash.WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	return stash.Open(viper.GetString("dir"), opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
