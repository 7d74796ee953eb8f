package project

import (
	"fmt"
	"slices"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/svcdeck/internal/changes"
	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/project"
	"github.com/Iron-Ham/svcdeck/internal/render"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the project tree as the change detector sees it",
	Long: `Walk the project once and print its tree, directories first. Paths
matching watcher.ignore or --ignore are left out, as they are when
watching for changes. Directories that cannot be read are shown with
their error instead of failing the walk.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

var (
	treeDepth  int
	treeSizes  bool
	treeIgnore []string
)

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "L", 0, "Descend at most this many levels (0 for unlimited)")
	treeCmd.Flags().BoolVarP(&treeSizes, "sizes", "s", false, "Show file sizes")
	treeCmd.Flags().StringSliceVar(&treeIgnore, "ignore", nil, "Additional glob patterns to skip")
}

// RegisterTreeCmd registers the tree command with the given parent command.
func RegisterTreeCmd(parent *cobra.Command) {
	parent.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	root, err := project.Resolve(arg)
	if err != nil {
		return err
	}

	cfg := config.Get()
	ignore := slices.Concat(cfg.Watcher.Ignore, treeIgnore)
	snapshotter, err := changes.NewWalkSnapshotter(afero.NewOsFs(), ignore)
	if err != nil {
		return err
	}
	snap, err := snapshotter.Snapshot(cmd.Context(), root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := render.NewStyles(render.ColorEnabled(cfg.Output.Color, out))
	render.RenderTree(out, snap.Root, styles, render.TreeOptions{MaxDepth: treeDepth, Sizes: treeSizes})

	summary := fmt.Sprintf("\n%d entries, %d files", snap.Root.Count()-1, len(snap.Index))
	if errs := snap.Root.Errors(); len(errs) > 0 {
		summary += styles.Error(fmt.Sprintf(", %d unreadable", len(errs)))
	}
	fmt.Fprintln(out, summary)
	return nil
}
