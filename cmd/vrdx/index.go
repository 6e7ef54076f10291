package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pbaille/vrdx/internal/index"
	"github.com/pbaille/vrdx/internal/watch"
	"github.com/pbaille/vrdx/internal/workspace"
)

func indexCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "index [directory]",
		Short: "Index the decisions of a directory for search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			ws, err := openWorkspace(root)
			if err != nil {
				return err
			}
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ix := index.New(s, nil, logger)
			stats, err := ix.Workspace(ws)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d decisions in %d files (%d failed, %d pruned)\n",
				stats.Decisions, stats.Files, stats.Failures, stats.Pruned)

			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchWorkspace(ctx, ws, ix)
		},
	}

	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep the index updated as files change")
	return cmd
}

// watchWorkspace re-indexes changed documents until ctx is cancelled
func watchWorkspace(ctx context.Context, ws *workspace.Workspace, ix *index.Indexer) error {
	w, err := watch.New(ws.Root, watch.Options{
		Discovery: workspaceOptions().Discovery,
		Logger:    logger,
	}, func(_ context.Context, paths []string) {
		if err := ix.Refresh(ws, paths); err != nil {
			logger.Warn("index.refresh.failed", "error", err)
		}
		for _, p := range paths {
			fmt.Printf("reindexed %s\n", ws.Rel(p))
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", ws.Root)
	return w.Run(ctx)
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			hits, err := index.New(s, nil, logger).Search(args[0], limit)
			if err != nil {
				return err
			}

			if len(hits) == 0 {
				fmt.Println("No matching decisions found. Run 'vrdx index' to refresh the index.")
				return nil
			}

			for _, h := range hits {
				fmt.Printf("%s#%d  %-14s  %s\n", h.Path, h.Decision.ID, h.Decision.Status, truncate(h.Decision.Title, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of results")
	return cmd
}
