package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	laikaboss "github.com/Nigelli/laikaboss"
	"github.com/Nigelli/laikaboss/internal/model"
)

// Server is the outer HTTP front-end: it accepts a raw submission over
// POST /v1/scan, runs it through the wired engine, persists the result and
// the original bytes, and returns the disposition. None of this lives in
// internal/ — spec.md §1 scopes "queue workers, RPC/REST front-ends... out
// of scope" for the core, so this is deliberately a thin outer layer
// grounded on bryanwahyu-automaton-sec's internal/infra/httpserver/router.go
// wrap-and-dispatch shape.
type Server struct {
	engine *laikaboss.Engine
	store  *ObjectStore
	ledger *Ledger
	logger *zap.Logger
}

func NewServer(engine *laikaboss.Engine, store *ObjectStore, ledger *Ledger, logger *zap.Logger) http.Handler {
	s := &Server{engine: engine, store: store, ledger: ledger, logger: logger}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/v1", func(rt chi.Router) {
		rt.Post("/scan", s.wrap(s.handleScan))
	})

	return r
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

type scanResponse struct {
	RootUUID    string `json:"rootUUID"`
	Disposition string `json:"disposition"`
	Reason      string `json:"reason"`
	ObjectCount int    `json:"objectCount"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) error {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "http"
	}
	filename := r.URL.Query().Get("filename")

	buf, err := io.ReadAll(io.LimitReader(r.Body, 256<<20))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	ev := model.ExternalVars{Source: source, Filename: filename, Timestamp: time.Now()}
	result, err := s.engine.Scan(ctx, buf, ev, model.Full)
	if err != nil {
		return err
	}

	root := result.Root()
	dispositionMeta := root.Metadata(model.MetadataDispositionerKey)
	disposition := dispositionMeta["Result"]
	reasonVal := dispositionMeta["Reason"]

	data, err := result.Serialize(model.Full)
	if err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.PutResult(ctx, root.UUID, data); err != nil {
			s.logger.Warn("failed to persist result", zap.Error(err))
		}
		if err := s.store.PutSubmission(ctx, root.ObjectHash, buf); err != nil {
			s.logger.Warn("failed to persist submission", zap.Error(err))
		}
	}
	if s.ledger != nil {
		rec := ScanRecord{
			RootUUID:    root.UUID,
			Source:      source,
			Disposition: disposition.AsString(),
			Reason:      reasonVal.AsString(),
			ObjectCount: result.Count(),
			SubmittedAt: ev.Timestamp,
		}
		if err := s.ledger.Insert(ctx, rec); err != nil {
			s.logger.Warn("failed to record scan", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(scanResponse{
		RootUUID:    root.UUID,
		Disposition: disposition.AsString(),
		Reason:      reasonVal.AsString(),
		ObjectCount: result.Count(),
	})
}
