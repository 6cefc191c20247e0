package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
)

// maxSubmissionBytes caps a questionnaire submission.
const maxSubmissionBytes = 256 << 10

// ─── POST /api/assessments ────────────────────────────────────────────────────

type createAssessmentResponse struct {
	AssessmentID string            `json:"assessment_id"`
	AccessToken  string            `json:"access_token"`
	Result       assessment.Result `json:"result"`
}

// handleCreateAssessment scores a submission, stores it together with its
// result, and returns the access token the browser uses from then on.
func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	raw, in, ok := s.readSubmission(w, r)
	if !ok {
		return
	}

	res, err := assessment.Run(s.rules, in)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("run assessment: %w", err))
		return
	}

	resultJSON, err := json.Marshal(res)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("encode result: %w", err))
		return
	}

	a, err := s.store.CreateAssessment(r.Context(), store.CreateAssessmentParams{
		Persona:          in.Persona,
		Input:            raw,
		Result:           resultJSON,
		ResultDigest:     res.Digest(),
		RulesVersion:     s.rules.Version,
		RulesFingerprint: s.rules.Fingerprint(),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create assessment: %w", err))
		return
	}

	s.logger.Info("assessment scored",
		"assessment_id", a.ID,
		"immediate_concern", res.Flags["has_immediate_concern"],
		requestAttr(r),
	)

	respond(w, http.StatusCreated, createAssessmentResponse{
		AssessmentID: a.ID.String(),
		AccessToken:  a.AccessToken,
		Result:       res,
	})
}

// ─── POST /api/assessments/preview ────────────────────────────────────────────

// handlePreviewAssessment scores a submission without storing it. The
// questionnaire calls it to show a live score while the user answers.
func (s *Server) handlePreviewAssessment(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.readSubmission(w, r)
	if !ok {
		return
	}

	res, err := assessment.Run(s.rules, in)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("run assessment: %w", err))
		return
	}

	respond(w, http.StatusOK, res)
}

// readSubmission reads and validates the request body. Unknown fields are
// tolerated: the questionnaire sends extra UI state alongside the answers.
// Returns false and writes 400 on any problem.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (json.RawMessage, assessment.Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, r, http.StatusBadRequest, "could not read request body")
		return nil, assessment.Input{}, false
	}

	in, err := assessment.ParseInput(raw)
	if err != nil {
		respondErr(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, assessment.Input{}, false
	}

	if err := in.Validate(); err != nil {
		msg := err.Error()
		if errors.Is(err, assessment.ErrEmptyInput) {
			msg = "answers or demographics are required"
		}
		respondErr(w, r, http.StatusBadRequest, msg)
		return nil, assessment.Input{}, false
	}

	return raw, in, true
}
