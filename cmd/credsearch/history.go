package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/credsearch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [search-id]",
	Short: "List past searches, or the crack jobs of one search",
	Long: `History lists recorded searches, newest first. Pass a search ID to list the
crack jobs run for it. Only counts and outcomes are stored; API keys and
plaintexts never reach the history database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of searches to list")
	historyCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.History.Enabled = true
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		s, err := store.Search(ctx, args[0])
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no search with ID %s", args[0])
		}
		if err != nil {
			return err
		}
		jobs, err := store.Jobs(ctx, s.ID)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(struct {
				Search history.SearchEntry `json:"search"`
				Jobs   []history.JobEntry  `json:"jobs"`
			}{s, jobs})
		}
		printJobs(s, jobs)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.Searches(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No searches recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "When", "Query", "Outcome", "Records", "Total", "Attempts"})
	for _, e := range entries {
		outcome := e.Outcome
		if e.StatusCode != 0 {
			outcome = fmt.Sprintf("%s (%d)", outcome, e.StatusCode)
		}
		t.AppendRow(table.Row{
			e.ID,
			humanize.Time(e.CreatedAt),
			e.Query,
			outcome,
			humanize.Comma(int64(e.Records)),
			humanize.Comma(int64(e.Total)),
			e.Attempts,
		})
	}
	t.Render()
	return nil
}

func printJobs(s history.SearchEntry, jobs []history.JobEntry) {
	fmt.Printf("%s  %s  %s, %s record(s)\n", s.Query, s.CreatedAt.Local().Format(time.DateTime), s.Outcome, humanize.Comma(int64(s.Records)))
	if len(jobs) == 0 {
		fmt.Println("No crack jobs recorded for this search.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Engine", "Type", "State", "Cracked", "Elapsed", "Exit", "Error"})
	for _, j := range jobs {
		t.AppendRow(table.Row{
			j.Engine,
			j.HashType,
			j.State,
			fmt.Sprintf("%d/%d", j.Cracked, j.Candidates),
			j.Elapsed.Round(time.Millisecond),
			j.ExitCode,
			j.Error,
		})
	}
	t.Render()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
