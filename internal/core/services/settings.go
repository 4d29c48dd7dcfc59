package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMRate           = "llm.requests_per_minute"
	keyStoreBackend      = "store.backend"
	keyStoreDataDir      = "store.data_dir"
	keyStoreDSN          = "store.dsn"
	keyDownloadTimeout   = "ingest.download_timeout_seconds"
	keyLLMTimeout        = "ingest.llm_timeout_seconds"
	keyMaxBytes          = "ingest.max_bytes"
	keyMetadataPages     = "ingest.metadata_pages"
	keyRetrievalMaxPages = "retrieval.max_pages"
	keyServerAddr        = "server.addr"
	keyServerMCPAddr     = "server.mcp_addr"
	keyServerSecret      = "server.secret"
	keyServerIngestRate  = "server.ingest_rate_per_minute"
	keyLogFormat         = "logging.format"
)

// envPrefix prefixes environment overrides: llm.api_key is read from
// PDFZ_LLM_API_KEY.
const envPrefix = "PDFZ_"

// providerKeyEnv names the conventional API key variable of each cloud provider.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
}

// EnvLookup reads an environment variable.
type EnvLookup func(key string) (string, bool)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   EnvLookup
}

// NewSettingsService creates a new settings service reading overrides from
// the process environment.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup.
func (s *SettingsService) WithEnv(lookup EnvLookup) *SettingsService {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings. Environment variables
// override the config file.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.stored()
	if err := s.applyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// stored reads the config file over the defaults.
func (s *SettingsService) stored() *domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	return &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			RequestsPerMinute: s.getInt(keyLLMRate, defaults.LLM.RequestsPerMinute),
		},
		Store: domain.StoreSettings{
			Backend: s.getBackend(defaults.Store.Backend),
			DataDir: s.getString(keyStoreDataDir, s.defaultDataDir()),
			DSN:     s.configStore.GetString(keyStoreDSN),
		},
		Ingest: domain.IngestSettings{
			DownloadTimeout: s.getSeconds(keyDownloadTimeout, defaults.Ingest.DownloadTimeout),
			LLMTimeout:      s.getSeconds(keyLLMTimeout, defaults.Ingest.LLMTimeout),
			MaxBytes:        int64(s.getInt(keyMaxBytes, int(defaults.Ingest.MaxBytes))),
			MetadataPages:   s.getInt(keyMetadataPages, defaults.Ingest.MetadataPages),
		},
		Retrieval: domain.RetrievalSettings{
			MaxPages: s.getInt(keyRetrievalMaxPages, defaults.Retrieval.MaxPages),
		},
		Server: domain.ServerSettings{
			Addr:                s.getString(keyServerAddr, defaults.Server.Addr),
			MCPAddr:             s.configStore.GetString(keyServerMCPAddr),
			Secret:              s.configStore.GetString(keyServerSecret),
			IngestRatePerMinute: s.getInt(keyServerIngestRate, defaults.Server.IngestRatePerMinute),
		},
		Logging: domain.LoggingSettings{
			Format: s.getString(keyLogFormat, defaults.Logging.Format),
		},
	}
}

// defaultDataDir places data next to the config file.
func (s *SettingsService) defaultDataDir() string {
	path := s.configStore.Path()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "data")
}

// applyEnv overlays PDFZ_* variables, then fills a missing API key from the
// provider's conventional variable.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) error {
	var errs *multierror.Error

	str := func(key string, dst *string) {
		if v, ok := s.env(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := s.env(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %q is not a number", envName(key), v))
				return
			}
			*dst = n
		}
	}
	seconds := func(key string, dst *time.Duration) {
		n := -1
		num(key, &n)
		if n >= 0 {
			*dst = time.Duration(n) * time.Second
		}
	}

	if v, ok := s.env(keyLLMProvider); ok {
		settings.LLM.Provider = domain.AIProvider(strings.ToLower(v))
	}
	str(keyLLMModel, &settings.LLM.Model)
	str(keyLLMBaseURL, &settings.LLM.BaseURL)
	str(keyLLMAPIKey, &settings.LLM.APIKey)
	num(keyLLMRate, &settings.LLM.RequestsPerMinute)

	if v, ok := s.env(keyStoreBackend); ok {
		settings.Store.Backend = domain.StoreBackend(strings.ToLower(v))
	}
	str(keyStoreDataDir, &settings.Store.DataDir)
	str(keyStoreDSN, &settings.Store.DSN)

	seconds(keyDownloadTimeout, &settings.Ingest.DownloadTimeout)
	seconds(keyLLMTimeout, &settings.Ingest.LLMTimeout)
	maxBytes := int(settings.Ingest.MaxBytes)
	num(keyMaxBytes, &maxBytes)
	settings.Ingest.MaxBytes = int64(maxBytes)
	num(keyMetadataPages, &settings.Ingest.MetadataPages)
	num(keyRetrievalMaxPages, &settings.Retrieval.MaxPages)

	str(keyServerAddr, &settings.Server.Addr)
	str(keyServerMCPAddr, &settings.Server.MCPAddr)
	str(keyServerSecret, &settings.Server.Secret)
	num(keyServerIngestRate, &settings.Server.IngestRatePerMinute)
	str(keyLogFormat, &settings.Logging.Format)

	if settings.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[settings.LLM.Provider]; ok {
			if v, ok := s.lookupEnv(name); ok {
				settings.LLM.APIKey = strings.TrimSpace(v)
			}
		}
	}

	return errs.ErrorOrNil()
}

func (s *SettingsService) env(key string) (string, bool) {
	v, ok := s.lookupEnv(envName(key))
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// envName maps a config key to its environment variable.
func envName(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRate, settings.LLM.RequestsPerMinute},
		{keyStoreBackend, settings.Store.Backend.String()},
		{keyStoreDataDir, settings.Store.DataDir},
		{keyStoreDSN, settings.Store.DSN},
		{keyDownloadTimeout, int(settings.Ingest.DownloadTimeout / time.Second)},
		{keyLLMTimeout, int(settings.Ingest.LLMTimeout / time.Second)},
		{keyMaxBytes, settings.Ingest.MaxBytes},
		{keyMetadataPages, settings.Ingest.MetadataPages},
		{keyRetrievalMaxPages, settings.Retrieval.MaxPages},
		{keyServerAddr, settings.Server.Addr},
		{keyServerMCPAddr, settings.Server.MCPAddr},
		{keyServerIngestRate, settings.Server.IngestRatePerMinute},
		{keyLogFormat, settings.Logging.Format},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when present so an empty value never wipes one.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMAPIKey, err)
		}
	}
	if settings.Server.Secret != "" {
		if err := s.configStore.Set(keyServerSecret, settings.Server.Secret); err != nil {
			return fmt.Errorf("save %s: %w", keyServerSecret, err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings := s.stored()
	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey
	if err := s.Save(settings); err != nil {
		return err
	}
	if apiKey == "" {
		// Save skips empty secrets; clear a stale cloud key explicitly.
		return s.configStore.Set(keyLLMAPIKey, "")
	}
	return nil
}

// SetStoreBackend selects the document store backend.
func (s *SettingsService) SetStoreBackend(backend domain.StoreBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid store backend: %s", backend)
	}

	settings := s.stored()
	settings.Store.Backend = backend
	return s.Save(settings)
}

// Validate checks that the current settings are usable. All problems are
// reported together.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks settings for values the services cannot run with.
func ValidateSettings(settings *domain.AppSettings) error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	if !settings.LLM.Provider.IsValid() {
		add("invalid LLM provider: %s", settings.LLM.Provider)
	} else if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		add("LLM provider %s requires an API key (llm.api_key or %s)",
			settings.LLM.Provider, providerKeyEnv[settings.LLM.Provider])
	}
	if settings.LLM.RequestsPerMinute < 0 {
		add("llm.requests_per_minute must not be negative")
	}

	switch {
	case !settings.Store.Backend.IsValid():
		add("invalid store backend: %s", settings.Store.Backend)
	case settings.Store.Backend == domain.StoreBackendPostgres && settings.Store.DSN == "":
		add("store backend postgres requires store.dsn")
	}
	if settings.Store.Backend.IsPersistent() && settings.Store.DataDir == "" {
		add("store.data_dir is required for the %s backend", settings.Store.Backend)
	}

	if settings.Ingest.DownloadTimeout <= 0 {
		add("ingest.download_timeout_seconds must be positive")
	}
	if settings.Ingest.LLMTimeout <= 0 {
		add("ingest.llm_timeout_seconds must be positive")
	}
	if settings.Ingest.MaxBytes <= 0 {
		add("ingest.max_bytes must be positive")
	}
	if settings.Ingest.MetadataPages < 1 || settings.Ingest.MetadataPages > domain.MaxMetadataPages {
		add("ingest.metadata_pages must be between 1 and %d", domain.MaxMetadataPages)
	}
	if settings.Retrieval.MaxPages < 1 {
		add("retrieval.max_pages must be at least 1")
	}
	if settings.Server.IngestRatePerMinute < 0 {
		add("server.ingest_rate_per_minute must not be negative")
	}

	switch settings.Logging.Format {
	case "text", "json":
	default:
		add("logging.format must be text or json, got %q", settings.Logging.Format)
	}

	return errs.ErrorOrNil()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Second
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StoreBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
