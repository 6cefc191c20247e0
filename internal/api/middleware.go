package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ─── CORS ─────────────────────────────────────────────────────────────────────

// corsMiddleware answers preflights and sets CORS headers. In production only
// the configured BaseURL origin is allowed; elsewhere any origin is echoed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowedOrigin := strings.TrimRight(s.cfg.BaseURL, "/")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if s.cfg.Env != "production" || origin == allowedOrigin {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── REQUEST LOG ──────────────────────────────────────────────────────────────

// loggerMiddleware logs each request once it completes. The route pattern is
// logged instead of the raw path so access tokens never reach the logs.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http",
				"method", r.Method,
				"route", routePattern(r),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				requestAttr(r),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern is the matched chi pattern, e.g. /api/blueprint/{accessToken}.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// requestAttr tags a log line with the request id for correlation.
func requestAttr(r *http.Request) slog.Attr {
	return slog.String("request_id", middleware.GetReqID(r.Context()))
}

// ─── RESPONSES ────────────────────────────────────────────────────────────────

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// respond writes body as JSON with the given status.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondErr writes the error envelope. The request id lets support match a
// user's report to the server log.
func respondErr(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, status, errorResponse{
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respondInternalErr logs err and answers 500 without leaking it.
func (s *Server) respondInternalErr(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error",
		"error", err,
		"route", routePattern(r),
		requestAttr(r),
	)
	respondErr(w, r, http.StatusInternalServerError, "internal server error")
}

// logEmailErr records a failed notification. Emails never fail a request.
func (s *Server) logEmailErr(r *http.Request, err error, kind string) {
	if err == nil {
		return
	}
	s.logger.Error("email send failed", "kind", kind, "error", err, requestAttr(r))
}

// ─── REQUEST BODIES ───────────────────────────────────────────────────────────

const maxJSONBody = 1 << 20

// decodeBody decodes a small JSON request body into dst, rejecting unknown
// fields. On failure it writes 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondErr(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
