package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/credsearch/internal/detect"
	"github.com/pdiddy/credsearch/internal/export"
)

var crackCmd = &cobra.Command{
	Use:   "crack",
	Short: "Crack the hashes in a previously exported JSON record set",
	Long: `Crack reads records written by "credsearch search --format json", detects
hash fields, and cracks them one hash family at a time. Plaintexts are merged
back as <field>_plaintext columns and written with a _cracked suffix.`,
	Example: `  credsearch crack --input results/2026-01-02_example_com.json --wordlist rockyou.txt
  credsearch crack --input leak.json --engine john --hash-type raw-md5 --wordlist words.txt`,
	Args: cobra.NoArgs,
	RunE: runCrack,
}

func init() {
	crackCmd.Flags().String("input", "", "JSON record file to crack")
	crackCmd.Flags().String("name", "", "name used for output files (default: input file name)")
	_ = crackCmd.MarkFlagRequired("input")
	addCrackFlags(crackCmd)
	addOutputFlags(crackCmd)

	rootCmd.AddCommand(crackCmd)
}

func runCrack(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	records, err := export.ReadJSON(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	records = export.Clean(records)

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}

	candidates := detect.Detect(records)
	printCandidates(candidates)
	if len(candidates) == 0 {
		return nil
	}

	store := openHistory(cfg.History)
	if store != nil {
		defer store.Close()
	}

	run, crackErr := crackRecords(cmd.Context(), cfg.Crack, records, candidates, store, "")
	if crackErr != nil && run.Records == nil {
		return crackErr
	}
	printSummary(os.Stderr, run.Summary)

	now := time.Now()
	summary := run.Summary
	rep := export.Report{
		Query:      name,
		Date:       now,
		Total:      len(records),
		Records:    run.Records,
		Candidates: candidates,
		Summary:    &summary,
		Failures:   run.Failures,
	}
	paths, err := writeExports(cfg.Output, now, name, export.CrackedSuffix, run.Records, rep)
	printPaths(os.Stderr, paths)
	if err != nil {
		return fmt.Errorf("exporting cracked results: %w", err)
	}
	return crackErr
}
