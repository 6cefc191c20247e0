package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nyashahama/vitality-blueprint-backend/internal/ai"
	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
	"github.com/nyashahama/vitality-blueprint-backend/internal/email"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
)

// Reader is the read side the worker needs. db.Querier satisfies it.
type Reader interface {
	GetAssessmentByID(ctx context.Context, id uuid.UUID) (db.Assessment, error)
	ListPendingAssessments(ctx context.Context) ([]db.Assessment, error)
}

// Store is the write side the worker needs. *store.Store satisfies it.
type Store interface {
	PersistBlueprint(ctx context.Context, p store.PersistBlueprintParams) (db.Assessment, error)
	MarkBlueprintFailed(ctx context.Context, assessmentID uuid.UUID, reason string) (db.Assessment, error)
}

// Job holds the dependencies for the generate-and-deliver pipeline. Each
// step is a separate block so Run reads top to bottom.
type Job struct {
	reader Reader
	store  Store
	writer ai.Writer
	mailer email.Sender
	logger *slog.Logger
}

// NewJob constructs a Job. writer may be nil, in which case every blueprint
// uses the default copy.
func NewJob(
	reader Reader,
	st Store,
	writer ai.Writer,
	mailer email.Sender,
	logger *slog.Logger,
) *Job {
	return &Job{
		reader: reader,
		store:  st,
		writer: writer,
		mailer: mailer,
		logger: logger,
	}
}

// Run executes the pipeline for one paid assessment:
//
//  1. Load the assessment and decode its stored result.
//  2. Ask the copy writer for blueprint text, falling back to default copy.
//  3. Persist the blueprint, moving the assessment to ready.
//  4. Send the delivery email.
//
// An assessment that is no longer pending is skipped without error. Any
// other error is returned to the Runner, which retries up to MaxRetries
// times before calling MarkBlueprintFailed.
func (j *Job) Run(ctx context.Context, assessmentID uuid.UUID) error {
	log := j.logger.With("assessment_id", assessmentID)
	log.Info("job: starting")

	// ── 1. Load ───────────────────────────────────────────────────────────────
	a, err := j.reader.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("job: get assessment: %w", err)
	}

	if a.Status != db.AssessmentStatusPaid && a.Status != db.AssessmentStatusProcessing {
		log.Info("job: assessment not pending, skipping", "status", a.Status)
		return nil
	}

	var res assessment.Result
	if err := json.Unmarshal(a.Result, &res); err != nil {
		return fmt.Errorf("job: decode stored result: %w", err)
	}

	// ── 2. Generate copy ──────────────────────────────────────────────────────
	bp := ai.DefaultBlueprint(res)
	if j.writer != nil {
		generated, err := j.writer.WriteBlueprint(ctx, res)
		if err != nil {
			// Provider failure is non-fatal.
			log.Warn("job: copy generation failed, using default copy", "error", err)
		} else {
			bp = generated
		}
	}

	body, err := json.Marshal(bp)
	if err != nil {
		return fmt.Errorf("job: encode blueprint: %w", err)
	}

	// ── 3. Persist ────────────────────────────────────────────────────────────
	ready, err := j.store.PersistBlueprint(ctx, store.PersistBlueprintParams{
		AssessmentID: assessmentID,
		Blueprint:    body,
		Source:       bp.Source,
	})
	if errors.Is(err, store.ErrNotPending) {
		log.Info("job: assessment finished elsewhere, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("job: persist blueprint: %w", err)
	}

	log.Info("job: blueprint persisted", "source", bp.Source)

	// ── 4. Deliver ────────────────────────────────────────────────────────────
	if !ready.Email.Valid || ready.Email.String == "" {
		log.Warn("job: assessment has no email address, skipping delivery email")
		return nil
	}

	if err := j.mailer.SendBlueprintReady(ctx, email.BlueprintReadyParams{
		To:          ready.Email.String,
		AccessToken: ready.AccessToken,
		Banner:      res.Safety.Banner,
	}); err != nil {
		// The blueprint is reachable through the access token; a failed email
		// does not fail the job.
		log.Error("job: failed to send blueprint email",
			"to", ready.Email.String,
			"error", err,
		)
	}

	return nil
}
