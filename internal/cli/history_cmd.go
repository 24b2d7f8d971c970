// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fintrack-tui/internal/config"
	"github.com/jeranaias/fintrack-tui/internal/export"
	"github.com/jeranaias/fintrack-tui/internal/logging"
	"github.com/jeranaias/fintrack-tui/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage local chat transcripts",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryExportCmd(a),
		newHistoryClearCmd(a),
	)
	return cmd
}

// openStore opens the transcript database.
func (a *app) openStore() (*storage.Store, error) {
	path, err := config.TranscriptsPath()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	return store.WithLogger(logging.Component(a.logger, "storage")), nil
}

func newHistoryListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			threads, err := store.Threads()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(threads) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No transcripts stored."))
				return nil
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(SeparatorStyle).
				Headers("THREAD", "MESSAGES", "UPDATED")
			for _, th := range threads {
				id := th.ThreadID
				if id == a.cfg.Chat.ThreadID {
					id += " " + SuccessStyle.Render("(current)")
				}
				t.Row(id, strconv.Itoa(th.MessageCount), th.UpdatedAt.Local().Format(time.DateTime))
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var (
		format, dir, thread string
		stdout              bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a transcript to a Markdown or JSON file",
		Example: `  fintrack history export
  fintrack history export --format json --dir ~/exports
  fintrack history export --stdout | less`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.OutputDir = dir
			opts.Format = a.format
			exporter, err := export.New(format, opts)
			if err != nil {
				return usageErrorf("%v", err)
			}
			if thread == "" {
				thread = a.cfg.Chat.ThreadID
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			recs, err := store.Load(thread)
			if err != nil {
				return err
			}
			t := export.FromRecords(thread, recs)
			if len(t.Messages) == 0 {
				return &CommandError{Command: "history export", Err: export.ErrEmpty}
			}

			if stdout {
				data, err := exporter.Export(t)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			path, err := export.ExportToFile(t, exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d messages to %s\n", SuccessStyle.Render("✓"), len(t.Messages), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md or json")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&thread, "thread", "", "thread ID (default the current thread)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	return cmd
}

func newHistoryClearCmd(a *app) *cobra.Command {
	var (
		yes       bool
		localOnly bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the current thread's history",
		Long: `Deletes the current thread's history on the server and the local
transcript. With --local only the local copy is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			thread := a.cfg.Chat.ThreadID
			if !yes {
				ok, err := confirm(a.prompter, "Delete the chat history of this thread?")
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
			}
			if !localOnly {
				if err := a.chat.ClearHistory(cmd.Context(), thread); err != nil {
					return &CommandError{Command: "history clear", Err: err}
				}
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(thread); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s History cleared\n", SuccessStyle.Render("✓"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&localOnly, "local", false, "only delete the local transcript")
	return cmd
}
