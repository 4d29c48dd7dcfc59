package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

const shutdownTimeout = 10 * time.Second

// Service is the HTTP API over the ingest and retrieval services.
type Service struct {
	config Config
	router *chi.Mux
}

// New creates and returns a fully configured HTTP API.
func New(config Config) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("http api: config validation failed: %w", err)
	}
	config.Logger = config.Logger.WithField("component", "http")

	svc := &Service{
		config: config,
		router: chi.NewRouter(),
	}

	svc.router.Use(middleware.Recoverer)
	svc.router.Use(logRequests(config.Logger))
	svc.router.Get("/healthz", svc.healthz)

	svc.router.Group(func(r chi.Router) {
		if config.Secret != "" {
			r.Use(requireToken(config.Secret))
		}
		r.With(limitRate(newIngestLimiter(config.IngestRatePerMinute))).Post("/ingest", svc.ingest)
		r.Get("/documents", svc.listDocuments)
		r.Get("/documents/{id}", svc.getDocument)
		r.Get("/documents/{id}/toc", svc.getTableOfContents)
		r.Get("/documents/{id}/pages", svc.getPages)
	})

	svc.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "no such route"})
	})

	return svc, nil
}

// Handler returns the routed handler.
func (svc *Service) Handler() http.Handler {
	return svc.router
}

// Run serves the API and blocks until the context is cancelled or an
// error occurs.
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.config.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:              svc.config.ListenAddr,
		Handler:           svc.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	svc.config.Logger.WithField("addr", l.Addr().String()).Info("started service")

	if err = srv.Serve(l); errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

func (svc *Service) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (svc *Service) ingest(w http.ResponseWriter, r *http.Request) {
	if svc.config.Ingest == nil {
		writeError(w, domain.ErrLLMUnavailable)
		return
	}

	var req ingestRequest
	body := http.MaxBytesReader(w, r.Body, svc.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body: %w", domain.ErrInvalidInput, err))
		return
	}
	if err := validateURL(req.URL); err != nil {
		writeError(w, err)
		return
	}

	result, err := svc.config.Ingest.Ingest(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	if !result.Created {
		// Another request stored the same content while this one ran.
		writeError(w, &domain.DuplicateError{ExistingID: result.Document.ID})
		return
	}

	doc := result.Document
	w.Header().Set("Location", "/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, ingestView{
		DocumentID: doc.ID,
		Title:      doc.Title,
		PageCount:  doc.PageCount,
		HasTOC:     doc.HasTableOfContents(),
		Document:   newDocumentView(doc),
	})
}

// validateURL accepts absolute http and https URLs only.
func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidInput, raw)
	}
	return nil
}

func (svc *Service) listDocuments(w http.ResponseWriter, r *http.Request) {
	summaries, err := svc.config.Retrieval.ListDocuments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]summaryView, len(summaries))
	for i, s := range summaries {
		views[i] = summaryView{ID: s.ID, Title: s.Title, Summary: s.Summary, PageCount: s.PageCount}
	}
	writeJSON(w, http.StatusOK, views)
}

func (svc *Service) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := svc.config.Retrieval.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDocumentView(doc))
}

func (svc *Service) getTableOfContents(w http.ResponseWriter, r *http.Request) {
	entries, err := svc.config.Retrieval.GetTableOfContents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutline(entries))
}

func (svc *Service) getPages(w http.ResponseWriter, r *http.Request) {
	start, err := pageParam(r, "start")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := pageParam(r, "end")
	if err != nil {
		writeError(w, err)
		return
	}

	content, err := svc.config.Retrieval.ExtractPageRange(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPagesView(content))
}

func pageParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: query parameter %q is required", domain.ErrInvalidInput, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a page number", domain.ErrInvalidInput, name, raw)
	}
	return n, nil
}
