package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"notionhelper/internal/history"
)

var historyLimit int

// historyCmd lists recent runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs and their steps",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func statusStyle(s history.Status) string {
	switch s {
	case history.StatusOK:
		return okStyle.Render(string(s))
	case history.StatusFailed:
		return failStyle.Render(string(s))
	case history.StatusSkipped:
		return dimStyle.Render(string(s))
	default:
		return warnStyle.Render(string(s))
	}
}

func printRuns(w io.Writer, runs []history.Run) {
	p := printer{w: w}
	if len(runs) == 0 {
		p.info("No runs recorded")
		return
	}
	for _, r := range runs {
		dur := ""
		if !r.Ended.IsZero() {
			dur = r.Ended.Sub(r.Started).Round(time.Millisecond).String()
		}
		p.header("%s  %s", r.Started.Local().Format("2006-01-02 15:04:05"), r.Command)
		p.info("%s  appended %d, skipped %d  %s  %s", statusStyle(r.Status), r.Appended, r.Skipped, dur, dimStyle.Render(r.ID))
		if r.Error != "" {
			p.info("%s", failStyle.Render(r.Error))
		}
		for _, st := range r.Steps {
			line := fmt.Sprintf("%-14s %s", st.Name, statusStyle(st.Status))
			if st.Detail != "" {
				line += "  " + st.Detail
			}
			if st.Error != "" {
				line += "  " + st.Error
			}
			p.dim("%s", line)
		}
	}
}
