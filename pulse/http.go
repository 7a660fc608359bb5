package pulse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/feed"
	"github.com/hazyhaar/feedpulse/kit"
	"github.com/hazyhaar/feedpulse/pulse/internal/shield"
)

const (
	maxRequestBody = 1 << 20

	// Verification attempts per client: a burst of 5, then one every 2s.
	verifyInterval = 2 * time.Second
	verifyBurst    = 5
	verifyIdle     = 10 * time.Minute
)

// Routes returns the local control surface.
//
//	GET    /health
//	GET    /presets
//	GET    /thresholds            PUT /thresholds
//	POST   /thresholds/bands      DELETE /thresholds/bands/{id}
//	POST   /collect               (?format=markdown for the report only)
//	GET    /reports               GET /reports/{id} (?format=markdown)
//	DELETE /reports/{id}
//	POST   /verify
func (e *Engine) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(shield.AccessLog(e.logger))
	r.Use(middleware.Recoverer)
	r.Use(shield.HeadToGet)
	r.Use(shield.APIHeaders)
	r.Use(shield.MaxBody(maxRequestBody))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := kit.WithTransport(r.Context(), "http")
			ctx = kit.WithRequestID(ctx, middleware.GetReqID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"collecting": e.collecting.Load(),
		})
	})

	r.Get("/presets", func(w http.ResponseWriter, _ *http.Request) {
		out := make(map[string]crawl.Config)
		for _, name := range crawl.PresetNames() {
			c, _ := crawl.Preset(name)
			out[name] = c
		}
		out[crawl.PresetCustom] = e.cfg.Crawl.Custom
		writeJSON(w, http.StatusOK, out)
	})

	r.Route("/thresholds", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, e.Thresholds())
		})

		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			var bands []feed.ThresholdBand
			if err := json.NewDecoder(r.Body).Decode(&bands); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if err := e.SetThresholds(r.Context(), bands); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, e.Thresholds())
		})

		r.Post("/bands", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Min   int    `json:"min"`
				Color string `json:"color"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			bands, err := e.AddBand(r.Context(), body.Min, body.Color)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, bands)
		})

		r.Delete("/bands/{id}", func(w http.ResponseWriter, r *http.Request) {
			bands, err := e.RemoveBand(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, bands)
		})
	})

	r.Post("/collect", func(w http.ResponseWriter, r *http.Request) {
		var req CollectRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		res, err := e.Collect(r.Context(), req)
		if err != nil {
			writeError(w, collectStatus(err), err)
			return
		}
		if r.URL.Query().Get("format") == "markdown" {
			writeMarkdown(w, crawl.ReportFileName(res.FinishedAt), res.Report)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list, err := e.Reports(r.Context(), queryInt(r, "limit", 50))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if list == nil {
				list = []Summary{}
			}
			writeJSON(w, http.StatusOK, list)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			c, err := e.Report(r.Context(), chi.URLParam(r, "id"))
			if errors.Is(err, ErrReportNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if r.URL.Query().Get("format") == "markdown" {
				writeMarkdown(w, crawl.ReportFileName(c.FinishedAt), c.Report)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			err := e.DeleteReport(r.Context(), chi.URLParam(r, "id"))
			if errors.Is(err, ErrReportNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.With(e.verifyLimit.Middleware).Post("/verify", func(w http.ResponseWriter, r *http.Request) {
		defer e.verifyLimit.GC(verifyIdle)
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"verified": e.Verify(body.Code)})
	})

	return r
}

func collectStatus(err error) int {
	switch {
	case errors.Is(err, ErrCollectionInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotProfile), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeMarkdown(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
