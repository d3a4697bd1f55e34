package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/credsearch/internal/detect"
	"github.com/pdiddy/credsearch/internal/export"
	"github.com/pdiddy/credsearch/internal/search"
	"github.com/pdiddy/credsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search DeHashed for records tied to a domain or email address",
	Long: `Search sends one query to the DeHashed API, retrying on HTTP 429 with
exponential backoff (the server's Retry-After header wins when present).
Records are printed as a table, hash-like fields are detected, and the
results are exported to the output directory.

With --crack, detected hashes are cracked with hashcat or John the Ripper
and the plaintexts are merged back as <field>_plaintext columns.`,
	Example: `  credsearch search --domain example.com
  credsearch search --email alice@example.com --format csv,md
  credsearch search --domain example.com --crack --wordlist rockyou.txt`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("domain", "", "domain to search for")
	searchCmd.Flags().String("email", "", "email address to search for")
	searchCmd.Flags().Int("max-retries", 0, "retries on HTTP 429 (default 3)")
	searchCmd.Flags().Int("size", 0, "entries per request (default 10000)")
	searchCmd.Flags().Float64("rps", 0, "maximum requests per second (default: unpaced)")
	searchCmd.Flags().Duration("http-timeout", 0, "per-attempt HTTP timeout (default 60s)")
	searchCmd.Flags().Bool("json", false, "print records as JSON instead of a table")
	searchCmd.Flags().Bool("crack", false, "crack detected hashes after the search")
	searchCmd.MarkFlagsMutuallyExclusive("domain", "email")
	searchCmd.MarkFlagsOneRequired("domain", "email")
	addCrackFlags(searchCmd)
	addOutputFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := types.SearchRequest{
		APIKey:     cfg.Search.APIKey,
		MaxRetries: cfg.Search.MaxRetries,
		Size:       cfg.Search.PageSize,
	}
	if d, _ := cmd.Flags().GetString("domain"); d != "" {
		req.Query, req.Kind = d, types.QueryDomain
	} else {
		req.Query, _ = cmd.Flags().GetString("email")
		req.Kind = types.QueryEmail
	}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store := openHistory(cfg.History)
	if store != nil {
		defer store.Close()
	}

	fmt.Fprintf(os.Stderr, "Searching %s\n", req.Expression())
	client := search.NewClient(cfg.Search, nil, logger)
	out := client.Execute(ctx, req)

	success, ok := out.(*types.Success)
	var records []types.Record
	if ok {
		records = export.Clean(success.Records)
	}

	var searchID string
	if store != nil {
		id, err := store.RecordSearch(ctx, req, out, len(records))
		if err != nil {
			logger.Warn("recording search", "error", err)
		}
		searchID = id
	}

	if !ok {
		return searchFailure(out)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if err := search.FormatJSON(records, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(records, success.Total, os.Stdout)
	}

	candidates := detect.Detect(records)
	printCandidates(candidates)

	now := time.Now()
	rep := export.Report{
		Query:      req.Query,
		Date:       now,
		Total:      success.Total,
		Records:    records,
		Candidates: candidates,
	}
	paths, err := writeExports(cfg.Output, now, req.Query, "", records, rep)
	printPaths(os.Stderr, paths)
	if err != nil {
		return fmt.Errorf("exporting results: %w", err)
	}

	doCrack, _ := cmd.Flags().GetBool("crack")
	if !doCrack || len(candidates) == 0 {
		return nil
	}

	run, crackErr := crackRecords(ctx, cfg.Crack, records, candidates, store, searchID)
	if crackErr != nil && run.Records == nil {
		return crackErr
	}
	printSummary(os.Stderr, run.Summary)

	if run.Summary.Cracked > 0 {
		summary := run.Summary
		rep.Records = run.Records
		rep.Summary = &summary
		rep.Failures = run.Failures
		paths, err := writeExports(cfg.Output, now, req.Query, export.CrackedSuffix, run.Records, rep)
		printPaths(os.Stderr, paths)
		if err != nil {
			return fmt.Errorf("exporting cracked results: %w", err)
		}
	}
	return crackErr
}

// searchFailure describes a failed outcome on stderr and returns its error.
func searchFailure(out types.SearchOutcome) error {
	err := types.OutcomeErr(out)
	warn := color.New(color.FgYellow)
	switch o := out.(type) {
	case *types.RateLimited:
		warn.Fprintf(os.Stderr, "Rate limited after %d attempt(s). Try again in %ds or raise --max-retries.\n", o.Attempts, o.AfterSeconds)
	case *types.APIError:
		if o.StatusCode == 401 || o.StatusCode == 403 {
			warn.Fprintln(os.Stderr, "Check the DeHashed API key (DEHASHED_API_KEY or .secrets/dehashed-api-key).")
		}
	}
	return err
}

func printCandidates(candidates []types.HashCandidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "No hash fields detected.")
		return
	}
	color.New(color.FgCyan).Fprintf(os.Stderr, "Detected %s hash value(s):\n", humanize.Comma(int64(len(candidates))))
	for _, fc := range detect.Columns(candidates) {
		fmt.Fprintf(os.Stderr, "  %-24s %6s  %v\n", fc.Field, humanize.Comma(int64(fc.Count)), fc.Types)
	}
}
