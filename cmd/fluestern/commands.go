package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fluestern/companion/internal/app"
	"github.com/fluestern/companion/internal/config"
	"github.com/fluestern/companion/internal/logtail"
	"github.com/fluestern/companion/internal/mcpserver"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

// runTUI starts the interactive companion.
func runTUI(cmd *cobra.Command, _ []string) error {
	o := loadOptions(cmd)
	log, closer, err := o.logger()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := o.openStore(log)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, err := config.Open(o.EnvPath)
	if err != nil {
		log.Warn("config unreadable, using defaults", "path", o.EnvPath, "err", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tailer := logtail.New(o.DebugLog, o.Poll)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tailer.Run(ctx)
	}()

	ctrl := app.NewController(store, cfg, log, o.Limit)
	model := app.New(ctrl, tailer, cancel)

	log.Info("starting", "db", o.DBPath, "env", o.EnvPath, "debug_log", o.DebugLog)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	<-done

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", runErr)
	}
	return nil
}

func newPromptContextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt-context",
		Short: "Print the correction patterns formatted for an LLM system prompt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := loadOptions(cmd)
			log, closer, err := o.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := o.openStore(log)
			if err != nil {
				return err
			}
			defer store.Close()

			text, err := store.ExportPromptContext(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newCorrectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corrections",
		Short: "List learned correction patterns, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := loadOptions(cmd)
			log, closer, err := o.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := o.openStore(log)
			if err != nil {
				return err
			}
			defer store.Close()

			corrections, err := store.ListCorrections(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range corrections {
				fmt.Fprintf(out, "\"%s\" -> \"%s\"\n", c.WhisperPattern, c.IntendedText)
			}
			return nil
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve prompt context and history to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := loadOptions(cmd)
			log, closer, err := o.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := o.openStore(log)
			if err != nil {
				return err
			}
			defer store.Close()

			s := mcpserver.New(store, version, log)
			log.Info("mcp server listening on stdio", "db", o.DBPath)
			return mcpserver.Serve(cmd.Context(), s, os.Stdin, os.Stdout, log)
		},
	}
}
