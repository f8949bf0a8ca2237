package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/comanda/internal/orderparse"
	"github.com/MikeSquared-Agency/comanda/internal/processor"
	"github.com/MikeSquared-Agency/comanda/internal/store"
)

const maxBodyBytes = 1 << 20

type Ingester interface {
	Parse(ctx context.Context, msg orderparse.RawMessage) (*orderparse.Result, error)
	Ingest(ctx context.Context, msg orderparse.RawMessage) (*processor.Outcome, error)
}

type OrderReader interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*store.OrderRow, error)
}

type Server struct {
	router *chi.Mux
	port   int
	http   *http.Server
	ingest Ingester
	orders OrderReader
}

// NewServer builds the HTTP API. orders may be nil, in which case order
// reads answer 503.
func NewServer(port int, apiToken string, ingest Ingester, orders OrderReader) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		ingest: ingest,
		orders: orders,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/comanda/status", s.status)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.createOrder)
		r.Post("/parse", s.parseOrder)
		r.Get("/{id}", s.getOrder)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// OrderRequest is the body of the parse and create endpoints.
type OrderRequest struct {
	MessageID string `json:"message_id"`
	Source    string `json:"source"`
	Text      string `json:"text"`
	Dialect   string `json:"dialect"`
}

func (req OrderRequest) message() (orderparse.RawMessage, error) {
	d, err := orderparse.ParseDialect(req.Dialect)
	if err != nil {
		return orderparse.RawMessage{}, err
	}
	id := req.MessageID
	if id == "" {
		id = "api-" + uuid.NewString()
	}
	return orderparse.RawMessage{
		ID:         id,
		Source:     orderparse.Source(req.Source),
		Text:       req.Text,
		Dialect:    d,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":   "comanda",
		"status":  "active",
		"storage": s.orders != nil,
	})
}

// parseOrder handles POST /api/v1/orders/parse: parse only, nothing stored.
func (s *Server) parseOrder(w http.ResponseWriter, r *http.Request) {
	msg, ok := decodeOrder(w, r)
	if !ok {
		return
	}
	res, err := s.ingest.Parse(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("parse failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// createOrder handles POST /api/v1/orders.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	msg, ok := decodeOrder(w, r)
	if !ok {
		return
	}
	out, err := s.ingest.Ingest(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("ingest failed: %v", err))
		return
	}
	code := http.StatusCreated
	if out.OrderID == uuid.Nil {
		code = http.StatusOK
	}
	writeJSON(w, code, out)
}

// getOrder handles GET /api/v1/orders/{id}.
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	if s.orders == nil {
		writeError(w, http.StatusServiceUnavailable, "order storage not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := s.orders.GetOrder(r.Context(), id)
	if errors.Is(err, store.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get order: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func decodeOrder(w http.ResponseWriter, r *http.Request) (orderparse.RawMessage, bool) {
	var req OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return orderparse.RawMessage{}, false
	}
	msg, err := req.message()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return orderparse.RawMessage{}, false
	}
	return msg, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
