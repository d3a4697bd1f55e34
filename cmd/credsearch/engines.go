package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/credsearch/internal/crack"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the cracking engines installed on this machine",
	Long: `Engines probes PATH for hashcat and John the Ripper and lists the ones that
answer a version check, in the order credsearch prefers them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engines := crack.DetectEngines()
		if len(engines) == 0 {
			cmd.PrintErrln("No cracking engine found. Install hashcat or john and make sure it is on PATH.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Engine"})
		for i, e := range engines {
			t.AppendRow(table.Row{i + 1, e.Name()})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
