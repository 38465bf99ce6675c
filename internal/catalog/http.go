package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"WebStore/pkg/kit"
)

const (
	readyTimeout   = 1 * time.Second
	eventHeartbeat = 15 * time.Second
)

type Server struct {
	Provider *Provider
	Log      *zap.Logger

	// Guard wraps the mutation routes (rate limiting, auth).
	Guard []func(http.Handler) http.Handler
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := s.Provider.Ping(ctx); err != nil {
			if s.Log != nil {
				s.Log.Warn("readyz failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/catalog", s.snapshot)
	r.Get("/catalog/primary", s.primary)
	r.Get("/catalog/events", s.events)

	r.Group(func(mr chi.Router) {
		mr.Use(s.Guard...)
		mr.Post("/catalog/primary/{id}/increment", s.adjustByID(1))
		mr.Post("/catalog/primary/{id}/decrement", s.adjustByID(-1))
		mr.Post("/catalog/primary/at/{index}/increment", s.adjustAt(1))
		mr.Post("/catalog/primary/at/{index}/decrement", s.adjustAt(-1))
	})

	return r
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	st, err := s.Provider.GetSnapshot(r.Context())
	if err != nil {
		s.serverError(w, r, "snapshot failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) primary(w http.ResponseWriter, r *http.Request) {
	st, err := s.Provider.GetSnapshot(r.Context())
	if err != nil {
		s.serverError(w, r, "snapshot failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, st.Primary)
}

func (s *Server) adjustByID(delta int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var (
			it  Item
			err error
		)
		if delta > 0 {
			it, err = s.Provider.IncrementPrice(r.Context(), id)
		} else {
			it, err = s.Provider.DecrementPrice(r.Context(), id)
		}
		if err != nil {
			s.writeMutationError(w, r, err, map[string]any{"id": id})
			return
		}
		s.writeMutation(w, r, it)
	}
}

func (s *Server) adjustAt(delta int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "index")
		index, err := strconv.Atoi(raw)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad index", map[string]any{"index": raw})
			return
		}

		var it Item
		if delta > 0 {
			it, err = s.Provider.IncrementAt(r.Context(), index)
		} else {
			it, err = s.Provider.DecrementAt(r.Context(), index)
		}
		if err != nil {
			s.writeMutationError(w, r, err, map[string]any{"index": index})
			return
		}
		s.writeMutation(w, r, it)
	}
}

func (s *Server) writeMutation(w http.ResponseWriter, _ *http.Request, it Item) {
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, err error, details map[string]any) {
	status := HTTPStatus(err)
	switch status {
	case http.StatusNotFound:
		kit.WriteError(w, r, status, "not found", details)
	case http.StatusConflict:
		kit.WriteError(w, r, status, "price overflow", details)
	case http.StatusGatewayTimeout:
		kit.WriteError(w, r, status, "timeout", nil)
	default:
		s.serverError(w, r, "price adjustment failed", err)
	}
}

// events streams every published snapshot as a server-sent event.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		kit.WriteError(w, r, http.StatusNotImplemented, "streaming unsupported", nil)
		return
	}

	ch, err := s.Provider.Subscribe(r.Context())
	if err != nil {
		s.serverError(w, r, "subscribe failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(eventHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, "snapshot", st); err != nil {
				if s.Log != nil {
					s.Log.Debug("event stream closed", zap.Error(err))
				}
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
	return err
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err))
	}
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, ErrPriceOverflow):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
