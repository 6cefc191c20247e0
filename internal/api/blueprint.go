package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ai"
	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
)

// ─── GET /api/blueprint/:accessToken ──────────────────────────────────────────

type blueprintResponse struct {
	AssessmentID string            `json:"assessment_id"`
	Status       string            `json:"status"`
	Persona      string            `json:"persona,omitempty"`
	Result       assessment.Result `json:"result"`
	Blueprint    *ai.Blueprint     `json:"blueprint,omitempty"`
	RulesVersion string            `json:"rules_version"`
	GeneratedAt  string            `json:"generated_at,omitempty"`
}

// handleGetBlueprint serves the scored result and, once the worker has
// finished, the blueprint copy. The access token is an opaque 24-byte
// base64url string; no other authentication is needed.
//
// Returns 404 for an unknown token. Returns 202 Accepted while payment is
// pending or the blueprint is being generated so the frontend can poll.
func (s *Server) handleGetBlueprint(w http.ResponseWriter, r *http.Request) {
	accessToken := chi.URLParam(r, "accessToken")
	if accessToken == "" {
		respondErr(w, r, http.StatusBadRequest, "missing access token")
		return
	}

	a, err := s.q.GetAssessmentByAccessToken(r.Context(), accessToken)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, r, http.StatusNotFound, "blueprint not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}

	switch a.Status {
	case db.AssessmentStatusReady:
		// handled below
	case db.AssessmentStatusError:
		respond(w, http.StatusOK, map[string]string{
			"status":  string(a.Status),
			"message": "we could not generate your blueprint, our team has been notified",
		})
		return
	default:
		respond(w, http.StatusAccepted, map[string]string{
			"status":  string(a.Status),
			"message": "blueprint is being generated, please check back shortly",
		})
		return
	}

	var res assessment.Result
	if err := json.Unmarshal(a.Result, &res); err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("decode result: %w", err))
		return
	}

	resp := blueprintResponse{
		AssessmentID: a.ID.String(),
		Status:       string(a.Status),
		Persona:      a.Persona.String,
		Result:       res,
		RulesVersion: a.RulesVersion,
	}

	if a.Blueprint.Valid {
		var bp ai.Blueprint
		if err := json.Unmarshal(a.Blueprint.RawMessage, &bp); err != nil {
			s.respondInternalErr(w, r, fmt.Errorf("decode blueprint: %w", err))
			return
		}
		resp.Blueprint = &bp
	}
	if a.ReadyAt.Valid {
		resp.GeneratedAt = a.ReadyAt.Time.UTC().Format(time.RFC3339)
	}

	respond(w, http.StatusOK, resp)
}
