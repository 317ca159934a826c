package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/achibot/internal/classifier"
	"github.com/m3rciful/achibot/internal/treebuilder"
)

func newBuildCmd() *cobra.Command {
	var formatName, in, out string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a JSON tree artifact from a semicolon-separated table",
		Example: "  classtree build --format mkh10 --in mkh10.csv --out data/mkh10.json\n" +
			"  classtree build --format achi --in achi.csv > data/achi.json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := treebuilder.LookupFormat(formatName)
			if err != nil {
				return err
			}
			src, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			res, err := treebuilder.Build(src, f)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := classifier.Encode(&buf, res.Tree); err != nil {
				return err
			}
			if out == "" || out == "-" {
				if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
					return err
				}
			} else if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}

			report := cmd.ErrOrStderr()
			st := newStyles(report)
			fmt.Fprintf(report, "%s %d rows, %d skipped\n", st.title.Render("built "+res.Tree.Name()+":"), res.Rows, res.Skipped)
			printStats(report, st, res.Tree)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "", "source format: achi or mkh10")
	cmd.Flags().StringVar(&in, "in", "", "source CSV table")
	cmd.Flags().StringVar(&out, "out", "", "artifact path (stdout when empty or -)")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func printStats(w io.Writer, st styles, t *classifier.Tree) {
	s := t.Stats()
	rows := []struct {
		key string
		val int
	}{
		{"classes", s.Classes},
		{"branches", s.Branches},
		{"leaf nodes", s.LeafNodes},
		{"codes", s.Records},
		{"max depth", s.MaxDepth},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s%d\n", st.key.Render(r.key), r.val)
	}
}
