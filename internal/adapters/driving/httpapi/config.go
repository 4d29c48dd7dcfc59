// Package httpapi exposes ingestion and document lookup over HTTP.
package httpapi

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
	"github.com/custodia-labs/pdfz/internal/logger"
)

const defaultMaxBodyBytes = 1 << 20

// Config defines the configuration for the HTTP API.
type Config struct {
	// Ingest stores new documents. When nil, POST /ingest answers 503.
	Ingest driving.IngestService

	// Retrieval serves stored documents.
	Retrieval driving.RetrievalService

	// ListenAddr is the address to listen on, e.g. ":8000".
	ListenAddr string

	// Secret derives the bearer token. Empty disables authentication.
	Secret string

	// IngestRatePerMinute limits POST /ingest across all clients.
	// Zero disables limiting.
	IngestRatePerMinute int

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// The logger to use. If not defined the package logger is used.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Retrieval == nil {
		err = multierror.Append(err, fmt.Errorf("retrieval service not provided"))
	}

	if config.ListenAddr == "" {
		err = multierror.Append(err, fmt.Errorf("listen address not provided"))
	}

	if config.IngestRatePerMinute < 0 {
		err = multierror.Append(err, fmt.Errorf("ingest rate must not be negative"))
	}

	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	if config.Logger == nil {
		config.Logger = logger.Entry()
	}

	return err
}
