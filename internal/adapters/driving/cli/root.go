// Package cli implements the pdfz command line.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
	"github.com/custodia-labs/pdfz/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services used by the commands. Execute fills them lazily from the
// configured stores; tests assign fakes directly.
var (
	settingsService  driving.SettingsService
	ingestService    driving.IngestService
	retrievalService driving.RetrievalService
)

// Global flags.
var (
	verbose   bool
	configDir string
	dataDir   string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "pdfz",
	Short: "Ingest PDFs and serve them to language models",
	Long: `pdfz downloads PDF documents, extracts their metadata with an LLM and
stores them once per unique content. Stored documents can be listed, their
tables of contents read and page ranges rendered as markdown from the
command line, over HTTP or through the Model Context Protocol.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.pdfz)")
	flags.StringVar(&dataDir, "data-dir", "", "Directory for the document store and retained PDFs")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading settings")
}

// SetVersion sets the version reported by 'pdfz version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted. Stores opened along the way are closed before returning.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeApp()

	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not load %s: %v", envFile, err)
		}
	}
	return nil
}
