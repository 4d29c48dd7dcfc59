package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an LLM service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend identifies a DocumentStore implementation.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendSQLite is the default single-file SQL store.
	StoreBackendSQLite StoreBackend = "sqlite"

	// StoreBackendBolt is an embedded key/value store.
	StoreBackendBolt StoreBackend = "bolt"

	// StoreBackendJSON is a single JSON index file replaced atomically.
	StoreBackendJSON StoreBackend = "json"

	// StoreBackendPostgres is a shared PostgreSQL database.
	StoreBackendPostgres StoreBackend = "postgres"

	// StoreBackendMemory keeps documents in process memory only.
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendBolt, StoreBackendJSON, StoreBackendPostgres, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// IsPersistent reports whether documents survive a restart.
func (b StoreBackend) IsPersistent() bool {
	return b.IsValid() && b != StoreBackendMemory
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendSQLite:
		return "SQLite (default)"
	case StoreBackendBolt:
		return "bbolt key/value file"
	case StoreBackendJSON:
		return "JSON index file"
	case StoreBackendPostgres:
		return "PostgreSQL (shared)"
	case StoreBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint override (required for remote Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic/Gemini).
	APIKey string

	// RequestsPerMinute throttles outgoing model calls. Zero disables throttling.
	RequestsPerMinute int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings selects and locates the document store.
type StoreSettings struct {
	// Backend selects the DocumentStore implementation.
	Backend StoreBackend

	// DataDir holds the store file and the retained PDF blobs.
	DataDir string

	// DSN is the connection string for the postgres backend.
	DSN string
}

// IngestSettings bounds the ingestion pipeline.
type IngestSettings struct {
	// DownloadTimeout bounds the whole download.
	DownloadTimeout time.Duration

	// LLMTimeout bounds the metadata extraction call.
	LLMTimeout time.Duration

	// MaxBytes caps the downloaded body size.
	MaxBytes int64

	// MetadataPages is how many leading pages feed metadata extraction.
	MetadataPages int
}

// RetrievalSettings bounds page-range reads.
type RetrievalSettings struct {
	// MaxPages caps the span of a single page-range extraction.
	MaxPages int
}

// ServerSettings configures the HTTP and MCP listeners.
type ServerSettings struct {
	// Addr is the HTTP API listen address.
	Addr string

	// MCPAddr is the streamable HTTP MCP listen address, empty to disable.
	MCPAddr string

	// Secret derives the bearer API token, empty to disable auth.
	Secret string

	// IngestRatePerMinute limits POST /ingest. Zero disables limiting.
	IngestRatePerMinute int
}

// LoggingSettings configures log output.
type LoggingSettings struct {
	// Format is "text" or "json".
	Format string
}

// AppSettings holds all application settings.
type AppSettings struct {
	LLM       LLMSettings
	Store     StoreSettings
	Ingest    IngestSettings
	Retrieval RetrievalSettings
	Server    ServerSettings
	Logging   LoggingSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM provider defaults to Anthropic but stays unconfigured until an
// API key is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider:          AIProviderAnthropic,
			Model:             DefaultLLMModels()[AIProviderAnthropic],
			RequestsPerMinute: 60,
		},
		Store: StoreSettings{
			Backend: StoreBackendSQLite,
		},
		Ingest: IngestSettings{
			DownloadTimeout: 60 * time.Second,
			LLMTimeout:      120 * time.Second,
			MaxBytes:        100 << 20,
			MetadataPages:   MaxMetadataPages,
		},
		Retrieval: RetrievalSettings{
			MaxPages: 10,
		},
		Server: ServerSettings{
			Addr:                ":8000",
			IngestRatePerMinute: 30,
		},
		Logging: LoggingSettings{
			Format: "text",
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderAnthropic,
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderOllama,
	}
}

// AllStoreBackends returns every selectable store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{
		StoreBackendSQLite,
		StoreBackendBolt,
		StoreBackendJSON,
		StoreBackendPostgres,
		StoreBackendMemory,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-sonnet-4-5",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}
