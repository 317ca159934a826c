package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/achibot/internal/classifier"
)

func newFindCmd() *cobra.Command {
	var (
		limit int
		exact bool
	)
	cmd := &cobra.Command{
		Use:   "find <artifact.json> <query>",
		Short: "Search codes and names, or look up one code with --code",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadArtifact(args[0], "")
			if err != nil {
				return err
			}
			query := strings.Join(args[1:], " ")
			out := cmd.OutOrStdout()
			st := newStyles(out)

			var hits []classifier.Hit
			if exact {
				if h, ok := t.FindCode(query); ok {
					hits = append(hits, h)
				}
			} else {
				hits = t.Search(query, limit)
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, st.warn.Render(fmt.Sprintf("no matches for %q", query)))
				return nil
			}
			for _, h := range hits {
				printHit(out, st, h)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results (0 for all)")
	cmd.Flags().BoolVar(&exact, "code", false, "treat the query as an exact code")
	return cmd
}

func printHit(w io.Writer, st styles, h classifier.Hit) {
	fmt.Fprintf(w, "%s %s\n", st.code.Render(h.Record.Code), h.Record.NameUA)
	fmt.Fprintf(w, "  %s\n", st.path.Render(strings.Join(h.Path, " › ")))
}
