package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/resolve"
)

var matchNoJudge bool

var matchCmd = &cobra.Command{
	Use:   "match <name>",
	Short: "Run the match cascade for a name without writing to the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("match"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "match: init store")
		}
		defer st.Close() //nolint:errcheck

		j := initJudge()
		if matchNoJudge {
			j = nil
		}
		r := resolve.NewResolver(st, j, resolveConfig(cfg))

		m, err := r.Match(ctx, model.RawExtractedEntry{Name: strings.Join(args, " ")})
		if err != nil {
			return eris.Wrap(err, "match")
		}
		return writeMatch(cmd.OutOrStdout(), m)
	},
}

func init() {
	matchCmd.Flags().BoolVar(&matchNoJudge, "no-judge", false, "skip the judge tier")
	rootCmd.AddCommand(matchCmd)
}

func writeMatch(w io.Writer, m *resolve.Match) error {
	var b strings.Builder
	fmt.Fprintf(&b, "base:  %s\n", m.BaseName)
	if m.PickInfo != "" {
		fmt.Fprintf(&b, "pick:  %s\n", m.PickInfo)
	}
	fmt.Fprintf(&b, "key:   %s\n", m.CanonicalKey)
	fmt.Fprintf(&b, "tier:  %s\n", m.Tier)
	if m.Whiskey != nil {
		fmt.Fprintf(&b, "match: %s (%s) score=%.3f\n", m.Whiskey.DisplayName, m.Whiskey.ID, m.Score)
	} else {
		fmt.Fprintf(&b, "new:   %s [%s]\n", m.Draft.DisplayName, m.Draft.ProductType)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
