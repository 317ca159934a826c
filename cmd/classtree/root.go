package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m3rciful/achibot/internal/classifier"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "classtree",
		Short:         "Build and inspect ACHI / МКХ-10 classifier trees",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newBuildCmd(),
		newStatsCmd(),
		newFindCmd(),
		newBrowseCmd(),
	)
	return root
}

// loadArtifact loads a tree, naming it after the file unless name is set.
func loadArtifact(path, name string) (*classifier.Tree, error) {
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return classifier.Load(strings.ToLower(name), path)
}
