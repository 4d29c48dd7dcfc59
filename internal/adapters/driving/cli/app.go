package cli

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/ai"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage"
	"github.com/custodia-labs/pdfz/internal/connectors"
	"github.com/custodia-labs/pdfz/internal/connectors/filesystem"
	"github.com/custodia-labs/pdfz/internal/connectors/web"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
	"github.com/custodia-labs/pdfz/internal/core/services"
	"github.com/custodia-labs/pdfz/internal/logger"
	"github.com/custodia-labs/pdfz/internal/normalisers/pdf"
)

// app holds the adapters opened for the current invocation.
type app struct {
	settings *domain.AppSettings
	stores   *storage.Stores
	llm      driven.LLMService
}

var (
	appMu   sync.Mutex
	current *app
)

// getSettingsService returns the configured settings service, opening the
// config store on first use.
func getSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(store, ai.NewConfigValidator())
	return settingsService, nil
}

// loadSettings reads settings and applies command line overrides.
func loadSettings() (*domain.AppSettings, error) {
	svc, err := getSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if dataDir != "" {
		settings.Store.DataDir = dataDir
	}
	logger.SetFormat(settings.Logging.Format)
	return settings, nil
}

// openApp opens the stores and the LLM once per process.
func openApp() (*app, error) {
	appMu.Lock()
	defer appMu.Unlock()
	if current != nil {
		return current, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	stores, err := storage.Open(settings.Store)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened %s store in %s", settings.Store.Backend, settings.Store.DataDir)

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("LLM unavailable, ingestion disabled: %v", err)
		llm = nil
	} else if llm == nil {
		logger.Warn("no LLM configured, ingestion disabled. Run 'pdfz settings llm' to configure one")
	}

	current = &app{settings: settings, stores: stores, llm: llm}
	return current, nil
}

// closeApp releases whatever openApp acquired.
func closeApp() {
	appMu.Lock()
	defer appMu.Unlock()
	if current == nil {
		return
	}

	var errs *multierror.Error
	if current.llm != nil {
		errs = multierror.Append(errs, current.llm.Close())
	}
	errs = multierror.Append(errs, current.stores.Close())
	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn("closing: %v", err)
	}
	current = nil
}

func getRetrievalService() (driving.RetrievalService, error) {
	if retrievalService != nil {
		return retrievalService, nil
	}
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	retrievalService = services.NewRetrievalService(
		a.stores.Documents,
		a.stores.Blobs,
		pdf.New(),
		a.settings.Retrieval.MaxPages,
	)
	return retrievalService, nil
}

func getIngestService() (driving.IngestService, error) {
	if ingestService != nil {
		return ingestService, nil
	}
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	if a.llm == nil {
		return nil, fmt.Errorf("%w: run 'pdfz settings llm' to configure a provider", domain.ErrLLMUnavailable)
	}

	prompts, err := file.NewPromptStore(promptDir())
	if err != nil {
		return nil, err
	}

	limits := a.settings.Ingest
	fetcher := connectors.NewRouter(
		web.New(
			web.WithHTTPClient(&http.Client{Timeout: limits.DownloadTimeout}),
			web.WithMaxBytes(limits.MaxBytes),
		),
		filesystem.New(limits.MaxBytes),
	)

	ingestService = services.NewIngestService(
		fetcher,
		pdf.New(),
		services.NewMetadataExtractor(a.llm, prompts),
		a.stores.Blobs,
		a.stores.Documents,
		limits,
		services.WithLogger(logger.Entry()),
	)
	return ingestService, nil
}

// promptDir keeps prompts next to the config file.
func promptDir() string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}

// optionalIngestService is used by servers, which keep serving documents
// when no LLM is configured.
func optionalIngestService() (driving.IngestService, error) {
	svc, err := getIngestService()
	if errors.Is(err, domain.ErrLLMUnavailable) {
		return nil, nil
	}
	return svc, err
}
