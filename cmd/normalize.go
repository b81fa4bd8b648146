package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/spirits-catalog/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <name>...",
	Short: "Print base name, pick info, and canonical key for each name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeNormalized(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func writeNormalized(w io.Writer, names []string) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "Base", "Pick", "Key"})
	for _, name := range names {
		base, pick := normalize.ParsePick(name)
		if pick == "" {
			pick = "-"
		}
		tw.AppendRow(table.Row{name, base, pick, normalize.Normalize(base)})
	}
	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}
