package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "stats <artifact.json>...",
		Short: "Print tree statistics of one or more artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			st := newStyles(out)
			for _, path := range args {
				t, err := loadArtifact(path, name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, st.title.Render(t.Name()))
				printStats(out, st, t)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "classifier name (defaults to the file name)")
	return cmd
}
