package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pbaille/vrdx/internal/api"
	"github.com/pbaille/vrdx/internal/index"
	"github.com/pbaille/vrdx/internal/logging"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		noSearch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [directory]",
		Short: "Start the REST API server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Addr
			}

			ws, err := openWorkspace(root)
			if err != nil {
				return err
			}

			opts := []api.Option{api.WithLogger(logging.WithFields(logger, map[string]any{"component": "api"}))}
			if !noSearch {
				s, err := getStore()
				if err != nil {
					return err
				}
				defer s.Close()

				ix := index.New(s, nil, logger)
				if _, err := ix.Workspace(ws); err != nil {
					return err
				}
				opts = append(opts, api.WithIndex(ix))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.New(ws, addr, opts...)
			if err := server.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	cmd.Flags().BoolVar(&noSearch, "no-search", false, "serve without the search index")
	return cmd
}
