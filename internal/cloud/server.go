package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sealkit/internal/domain"
	"sealkit/internal/observability"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type ctxKey int

const requestIDKey ctxKey = iota

// ServerOptions configures NewServer.
type ServerOptions struct {
	// Token, when set, is required as a bearer token on every /v1 route.
	Token   string
	Logger  zerolog.Logger
	Metrics *observability.Metrics
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
}

// Server is the development directory and backup server.
type Server struct {
	dir     domain.DirectoryService
	vault   domain.BackupVault
	opts    ServerOptions
	handler http.Handler
}

// NewServer builds the router for dir and vault.
func NewServer(dir domain.DirectoryService, vault domain.BackupVault, opts ServerOptions) *Server {
	s := &Server{dir: dir, vault: vault, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(escapedRoutes)
	r.Use(s.requestID)
	r.Use(s.observe)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/cards", s.handlePublish)
		r.Post("/cards/actions/search", s.handleSearch)
		r.Delete("/backups/{identity}", s.handleDeleteAll)
		r.Put("/backups/{identity}/{id}", s.handleStore)
		r.Get("/backups/{identity}/{id}", s.handleFetch)
		r.Delete("/backups/{identity}/{id}", s.handleDelete)
		r.Post("/backups/{identity}/{id}/actions/replace", s.handleReplace)
	})
	s.handler = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.opts.Metrics.ObserveRequest(route, r.Method, ww.Status(), elapsed)
		s.opts.Logger.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// escapedRoutes makes chi match on the escaped path, so URL parameters are
// decoded exactly once by pathParam.
func escapedRoutes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RoutePath = r.URL.EscapedPath()
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var card domain.Card
	if !decodeBody(w, r, &card) {
		return
	}
	out, err := s.dir.PublishCard(r.Context(), card)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.opts.Logger.Info().
		Str("identity", out.Identity.String()).
		Str("card_id", out.ID).
		Str("previous_card_id", out.PreviousCardID).
		Msg("card published")
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cards, err := s.dir.SearchCards(r.Context(), req.Identities)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Cards: cards})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := backupParams(w, r)
	if !ok {
		return
	}
	var body backupBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.vault.Store(r.Context(), identity, id, body.Key); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := backupParams(w, r)
	if !ok {
		return
	}
	key, err := s.vault.Fetch(r.Context(), identity, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, backupBody{Key: key})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := backupParams(w, r)
	if !ok {
		return
	}
	if err := s.vault.Delete(r.Context(), identity, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathParam(r, "identity")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "bad identity")
		return
	}
	if err := s.vault.DeleteAll(r.Context(), domain.Identity(identity)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	identity, id, ok := backupParams(w, r)
	if !ok {
		return
	}
	var req replaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NewID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "new_id is required")
		return
	}
	if err := s.vault.Replace(r.Context(), identity, id, req.NewID, req.Key); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps a collaborator error to a status code.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidCard):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrStaleRecord):
		writeError(w, http.StatusConflict, codeStaleRecord, err.Error())
	case errors.Is(err, domain.ErrBackupExists):
		writeError(w, http.StatusConflict, codeBackupExists, err.Error())
	case errors.Is(err, domain.ErrBackupNotFound):
		writeError(w, http.StatusNotFound, codeBackupNotFound, err.Error())
	default:
		s.opts.Logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func backupParams(w http.ResponseWriter, r *http.Request) (domain.Identity, string, bool) {
	identity, ok1 := pathParam(r, "identity")
	id, ok2 := pathParam(r, "id")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "bad backup path")
		return "", "", false
	}
	return domain.Identity(identity), id, true
}

// pathParam returns the decoded, non-empty URL parameter key.
func pathParam(r *http.Request, key string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, key))
	return v, err == nil && v != ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
