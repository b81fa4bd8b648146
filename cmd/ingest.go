package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/spirits-catalog/internal/ingest"
	"github.com/sells-group/spirits-catalog/internal/model"
	"github.com/sells-group/spirits-catalog/internal/resolve"
)

var (
	ingestFile       string
	ingestBar        string
	ingestSource     string
	ingestConfidence float64
	ingestMarkStale  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Resolve a batch of extracted names and record bar availability",
	Long: "Reads a YAML or JSON batch (either a full batch document or a bare list of entries), " +
		"resolves every entry against the catalog, upserts availability facts, and prints the summary as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		batch, err := loadBatch(ingestFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		applyBatchFlags(&batch, cmd)

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest: init store")
		}
		defer st.Close() //nolint:errcheck

		r := resolve.NewResolver(st, initJudge(), resolveConfig(cfg))
		o := ingest.New(r, st, ingest.Config{MaxConcurrency: cfg.Ingest.MaxConcurrency})

		sum, err := o.Run(ctx, batch)
		if sum != nil {
			if werr := writeSummary(cmd.OutOrStdout(), sum); werr != nil {
				return werr
			}
		}
		return err
	},
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFile, "file", "", "batch file, YAML or JSON; - reads stdin (required)")
	f.StringVar(&ingestBar, "bar", "", "bar ID, overrides the file")
	f.StringVar(&ingestSource, "source", "", "source type (text-scrape, vision, review-mention, manual), overrides the file")
	f.Float64Var(&ingestConfidence, "confidence", 0, "producer confidence in [0, 1], overrides the file")
	f.BoolVar(&ingestMarkStale, "mark-stale", false, "mark this bar's facts not seen in the batch as stale")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func loadBatch(path string, stdin io.Reader) (ingest.Batch, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return ingest.Batch{}, eris.Wrap(err, "ingest: open batch file")
		}
		defer f.Close() //nolint:errcheck
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ingest.Batch{}, eris.Wrap(err, "ingest: read batch")
	}
	return parseBatch(data)
}

// parseBatch accepts a batch document or a bare sequence of entries. JSON
// input parses as YAML.
func parseBatch(data []byte) (ingest.Batch, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ingest.Batch{}, eris.Wrap(err, "ingest: parse batch")
	}
	if len(doc.Content) == 0 {
		return ingest.Batch{}, eris.New("ingest: empty batch file")
	}

	var b ingest.Batch
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var entries []model.RawExtractedEntry
		if err := root.Decode(&entries); err != nil {
			return ingest.Batch{}, eris.Wrap(err, "ingest: decode entries")
		}
		b.Entries = entries
		return b, nil
	}
	if err := root.Decode(&b); err != nil {
		return ingest.Batch{}, eris.Wrap(err, "ingest: decode batch")
	}
	return b, nil
}

func applyBatchFlags(b *ingest.Batch, cmd *cobra.Command) {
	if ingestBar != "" {
		b.BarID = ingestBar
	}
	if ingestSource != "" {
		b.SourceType = model.SourceType(ingestSource)
	}
	if cmd.Flags().Changed("confidence") {
		b.Confidence = ingestConfidence
	}
	if ingestMarkStale {
		b.MarkUnseenStale = true
	}
}

func writeSummary(w io.Writer, sum *ingest.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(sum), "ingest: write summary")
}
