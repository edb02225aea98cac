package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fluestern/companion/internal/app"
	"github.com/fluestern/companion/internal/db"
	"github.com/fluestern/companion/internal/logger"
	"github.com/fluestern/companion/internal/logtail"
	"github.com/fluestern/companion/internal/paths"
	"github.com/spf13/cobra"
)

// Options holds the resolved command-line flags.
type Options struct {
	DBPath   string
	EnvPath  string
	DebugLog string
	LogFile  string
	LogLevel string
	LogJSON  bool
	Limit    int
	Poll     time.Duration
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("db", paths.DefaultDBPath(), "history database")
	cmd.PersistentFlags().String("env", paths.DefaultEnvPath(), "configuration file shared with the pipeline")
	cmd.PersistentFlags().String("debug-log", paths.DebugLog, "debug log written by the pipeline")
	cmd.PersistentFlags().String("log-file", "", "write diagnostics to a rotating file instead of stderr")
	cmd.PersistentFlags().String("log-level", "info", "diagnostic level: debug, info, warn, error")
	cmd.PersistentFlags().Bool("log-json", false, "write diagnostics as JSON lines")
	cmd.PersistentFlags().Int("limit", app.DefaultLimit, "number of recordings to show")
	cmd.PersistentFlags().Duration("poll", logtail.DefaultInterval, "debug log poll interval")
}

func loadOptions(cmd *cobra.Command) Options {
	var o Options
	o.DBPath, _ = cmd.Flags().GetString("db")
	o.EnvPath, _ = cmd.Flags().GetString("env")
	o.DebugLog, _ = cmd.Flags().GetString("debug-log")
	o.LogFile, _ = cmd.Flags().GetString("log-file")
	o.LogLevel, _ = cmd.Flags().GetString("log-level")
	o.LogJSON, _ = cmd.Flags().GetBool("log-json")
	o.Limit, _ = cmd.Flags().GetInt("limit")
	o.Poll, _ = cmd.Flags().GetDuration("poll")
	return o
}

func (o Options) logger() (*slog.Logger, io.Closer, error) {
	log, closer, err := logger.New(logger.Config{Level: o.LogLevel, File: o.LogFile, JSON: o.LogJSON})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return log, closer, nil
}

func (o Options) openStore(log *slog.Logger) (*db.Store, error) {
	store, err := db.Open(o.DBPath)
	if err != nil {
		log.Error("history database unavailable", "path", o.DBPath, "err", err)
		return nil, fmt.Errorf("history database %s: %w", o.DBPath, err)
	}
	return store, nil
}
