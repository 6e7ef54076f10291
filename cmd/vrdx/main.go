package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/vrdx/internal/config"
	"github.com/pbaille/vrdx/internal/discovery"
	"github.com/pbaille/vrdx/internal/logging"
	"github.com/pbaille/vrdx/internal/store"
	"github.com/pbaille/vrdx/internal/workspace"
)

var version = "dev"

var (
	cfgPath   string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger = logging.NoOp()
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vrdx [directory]",
		Short:   "Manage decision records embedded in Markdown documents",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return summarize(root)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json, pretty)")

	cmd.AddCommand(listCmd())
	cmd.AddCommand(showCmd())
	cmd.AddCommand(initCmd())
	cmd.AddCommand(newCmd())
	cmd.AddCommand(editCmd())
	cmd.AddCommand(rmCmd())
	cmd.AddCommand(mvCmd())
	cmd.AddCommand(templateCmd())
	cmd.AddCommand(statusesCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

// setup loads the config, applies flag overrides and builds the logger
func setup() error {
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if logFormat != "" {
		loaded.LogFormat = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg = loaded

	provider, err := logging.NewProvider(cfg.LoggingConfig())
	if err != nil {
		return err
	}
	logger = logging.ModuleLogger(provider, "cli")
	return nil
}

func workspaceOptions() workspace.Options {
	return workspace.Options{
		Discovery: discovery.Options{
			Extensions:  cfg.Extensions,
			IgnoredDirs: cfg.IgnoredDirs,
		},
		InsertMarkers: cfg.InsertMarkers,
		Newline:       cfg.NewlineSequence(),
		Logger:        logger,
	}
}

func openWorkspace(root string) (*workspace.Workspace, error) {
	return workspace.Open(root, workspaceOptions())
}

func openFile(path string) (*workspace.Workspace, error) {
	return workspace.OpenFile(path, workspaceOptions())
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.IndexPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	return store.New(cfg.IndexPath)
}

func summarize(root string) error {
	ws, err := openWorkspace(root)
	if err != nil {
		return err
	}

	if len(ws.App.Files) == 0 && len(ws.Failures) == 0 {
		fmt.Printf("No Markdown files found under %s\n", ws.Root)
		return nil
	}

	for _, f := range ws.App.Files {
		marker := " "
		if f.MarkerPresent {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, len(f.Decisions), ws.Rel(f.Path))
	}
	for _, f := range ws.Failures {
		fmt.Printf("! %s: %v\n", ws.Rel(f.Path), f.Err)
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid decision id %q", s)
	}
	return id, nil
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
