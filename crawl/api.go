package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler returns the HTTP surface of the service: health, read-only
// corpus queries, the symbol registry, and a run trigger.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "ok", "running": s.Running()})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			st, err := s.Stats(req.Context())
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, st)
		})

		r.Get("/items", func(w http.ResponseWriter, req *http.Request) {
			items, err := s.RecentItems(req.Context(), queryInt(req, "limit", 50))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, items)
		})

		r.Get("/mentions", func(w http.ResponseWriter, req *http.Request) {
			var since time.Time
			if h := queryInt(req, "since_hours", 0); h > 0 {
				since = time.Now().Add(-time.Duration(h) * time.Hour)
			}
			top, err := s.TopMentions(req.Context(), since, queryInt(req, "limit", 20))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, top)
		})

		r.Get("/symbols/{symbol}", func(w http.ResponseWriter, req *http.Request) {
			tokens, err := s.ResolveSymbol(req.Context(), chi.URLParam(req, "symbol"))
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]any{
				"symbol": chi.URLParam(req, "symbol"),
				"tokens": tokens,
			})
		})

		r.Post("/symbols", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Symbol  string `json:"symbol"`
				TokenID string `json:"token_id"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			if body.Symbol == "" || body.TokenID == "" {
				writeError(w, 400, errors.New("symbol and token_id are required"))
				return
			}
			if err := s.AddSymbol(req.Context(), body.Symbol, body.TokenID); err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 201, map[string]string{"status": "registered"})
		})

		r.Post("/run", func(w http.ResponseWriter, _ *http.Request) {
			if s.Running() {
				writeError(w, 409, ErrRunInProgress)
				return
			}
			// The run outlives the request.
			go func() {
				if _, err := s.Run(context.Background()); err != nil {
					s.log.Error("triggered run failed", "error", err)
				}
			}()
			writeJSON(w, 202, map[string]string{"status": "started"})
		})

		r.Get("/run/last", func(w http.ResponseWriter, _ *http.Request) {
			rep := s.LastReport()
			if rep == nil {
				writeError(w, 404, errors.New("no completed run"))
				return
			}
			writeJSON(w, 200, rep)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
