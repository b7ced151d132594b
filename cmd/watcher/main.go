// Package main provides the filesystem watcher CLI for automatic document ingestion.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/stash/internal/watcher"
)

var rootCmd = &cobra.Command{
	Use:   "stash-watcher",
	Short: "Filesystem watcher for automatic document ingestion",
	Long:  "Watches directories for new or changed documents and sends them to the ingestion API",
}

var watchCmd = &cobra.Command{
	Use:   "watch [directories...]",
	Short: "Watch directories and ingest documents as they change",
	Long: `Watches one or more directory trees for markdown, text and PDF files.

Each new or modified file is extracted and posted to the ingestion API.
Duplicate content is deduplicated server-side, so re-sending a file is
harmless. PDF extraction requires pdftotext on PATH.

Directories can be given as arguments or via WATCH_DIRECTORIES
(comma-separated).

Environment variables:
  STASH_API_URL      Ingestion API base URL (default: http://localhost:8000)
  WATCH_DIRECTORIES  Comma-separated directories to watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	dirs := args
	if len(dirs) == 0 {
		for _, dir := range strings.Split(os.Getenv("WATCH_DIRECTORIES"), ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to watch: pass them as arguments or set WATCH_DIRECTORIES")
	}

	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("cannot watch %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cannot watch %s: not a directory", dir)
		}
	}

	apiURL := getEnv("STASH_API_URL", "http://localhost:8000")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := watcher.NewAPIClient(apiURL)
	w := watcher.New(client, nil, logger)

	fmt.Printf("Watching %d directories, ingesting to %s\n", len(dirs), apiURL)
	err := w.Run(ctx, dirs)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
