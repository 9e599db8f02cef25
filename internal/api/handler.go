// Package api is the HTTP boundary layer: it adapts the session controller,
// history, and archive to a localhost REST surface and an MCP server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mindmate/mindmate/internal/session"
	"github.com/mindmate/mindmate/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SolveRequest is the inbound submission payload.
type SolveRequest struct {
	Problem string `json:"problem"`
}

// Deps holds handler dependencies. Store may be nil (archive routes then
// return 503).
type Deps struct {
	Controller *session.Controller
	Store      *storage.Store
	Token      string
}

// NewHandler returns the full REST handler. All routes except /health
// require the local bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/solve", handleSolve(deps))
		r.Get("/history", handleListHistory(deps))
		r.Get("/history/{index}", handleGetHistory(deps))
		r.Get("/history/{index}/report", handleGetReport(deps))
		r.Delete("/history", handleClearHistory(deps))
		r.Get("/archive", handleListArchive(deps))
		r.Get("/archive/{id}", handleGetArchive(deps))
		r.Delete("/archive", handlePurgeArchive(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"state":  string(deps.Controller.State()),
		})
	}
}

func handleSolve(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, string(session.KindInvalidInput), "invalid request body: %v", err)
			return
		}

		outcome := deps.Controller.Submit(r.Context(), req.Problem)
		if outcome.Failed() {
			httpError(w, statusFor(outcome.ErrKind), string(outcome.ErrKind), "%s", outcome.Message)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(outcome)
	}
}

// statusFor maps submission error kinds onto HTTP statuses: input problems
// are the caller's fault, everything upstream is a bad gateway.
func statusFor(kind session.ErrorKind) int {
	switch kind {
	case session.KindInvalidInput:
		return http.StatusBadRequest
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Controller.History().List()
		if entries == nil {
			entries = []session.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

func historyIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func handleGetHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := historyIndex(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, string(session.KindInvalidInput), "invalid history index")
			return
		}

		entry, err := deps.Controller.History().Get(index)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, string(session.KindNotFound), "history entry %d not found", index)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entry)
	}
}

func handleGetReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := historyIndex(r)
		if err != nil {
			httpError(w, http.StatusBadRequest, string(session.KindInvalidInput), "invalid history index")
			return
		}

		entry, err := deps.Controller.History().Get(index)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, string(session.KindNotFound), "history entry %d not found", index)
			return
		}

		report, err := session.FormatEntry(entry)
		if err != nil {
			httpError(w, http.StatusNotFound, string(session.KindNotFound), "%v", err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", "thinking_report_"+entry.Request.ID+".txt"))
		w.Write([]byte(report))
	}
}

func handleClearHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Controller.History().Clear()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	}
}

func handleListArchive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "archive not available")
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		records, err := deps.Store.ListRecords(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list archive: %v", err)
			return
		}
		if records == nil {
			records = []storage.Record{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}
}

func handleGetArchive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "archive not available")
			return
		}

		record, err := deps.Store.GetRecord(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, string(session.KindNotFound), "record not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get record: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(record)
	}
}

func handlePurgeArchive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "archive not available")
			return
		}
		if err := deps.Store.PurgeRecords(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to purge archive: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "purged"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
