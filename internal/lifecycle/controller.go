// Package lifecycle owns job status transitions and bid acceptance.
//
// The state machine:
//
//	OPEN --AcceptBid--> IN_PROGRESS --MarkCompleted--> COMPLETED
//	OPEN --AcceptBid--> IN_PROGRESS --RaiseDispute-->  DISPUTED
//	DISPUTED --ResolveDispute--> COMPLETED | OPEN (refund, reopened)
//
// Every transition is atomic across the job status and the escrow ledger:
// it runs inside a store transaction, with a compare-and-swap on the job
// status as the serialization point, so concurrent transitions on the same
// job resolve to exactly one winner.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/catalog"
	"github.com/artisanconnect/backend/internal/escrow"
	"github.com/artisanconnect/backend/internal/rating"
)

type Controller struct {
	store   catalog.Store
	ratings *rating.Aggregator
}

func NewController(store catalog.Store, ratings *rating.Aggregator) *Controller {
	return &Controller{store: store, ratings: ratings}
}

func (c *Controller) user(ctx context.Context, id string) (catalog.User, error) {
	u, err := c.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.User{}, apperr.NotFound("user %s not found", id)
		}
		return catalog.User{}, err
	}
	return u, nil
}

func (c *Controller) job(ctx context.Context, id string) (catalog.Job, error) {
	j, err := c.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Job{}, apperr.NotFound("job %s not found", id)
		}
		return catalog.Job{}, err
	}
	return j, nil
}

// PostJob creates an OPEN job owned by ownerID.
func (c *Controller) PostJob(ctx context.Context, ownerID, title, description, category, lga string, budget int64) (catalog.Job, error) {
	owner, err := c.user(ctx, ownerID)
	if err != nil {
		return catalog.Job{}, err
	}
	if owner.Role != catalog.RoleOwner {
		return catalog.Job{}, apperr.Forbidden("only owners can post jobs")
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return catalog.Job{}, apperr.InvalidArgument("title and description are required")
	}
	if budget <= 0 {
		return catalog.Job{}, apperr.InvalidArgument("budget must be positive")
	}
	if !catalog.IsValidCategory(category) {
		return catalog.Job{}, apperr.InvalidArgument("unknown category %q", category)
	}
	if !catalog.IsValidLGA(lga) {
		return catalog.Job{}, apperr.InvalidArgument("unknown LGA %q", lga)
	}

	now := time.Now()
	job := catalog.Job{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Category:    category,
		LGA:         lga,
		Budget:      budget,
		Status:      catalog.JobOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return c.store.CreateJob(ctx, job)
}

// AcceptBid assigns the bid's artisan, moves the job to IN_PROGRESS and opens
// a PENDING escrow record for the bid amount. The OPEN precondition is a
// compare-and-swap, so exactly one accept can ever win a job run: a
// concurrent or repeated accept observes InvalidState.
func (c *Controller) AcceptBid(ctx context.Context, jobID, bidID, callerID string) (catalog.Job, error) {
	job, err := c.job(ctx, jobID)
	if err != nil {
		return catalog.Job{}, err
	}
	if job.OwnerID != callerID {
		return catalog.Job{}, apperr.Forbidden("only the job owner can accept a bid")
	}

	bid, err := c.store.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Job{}, apperr.NotFound("bid %s not found", bidID)
		}
		return catalog.Job{}, err
	}
	if bid.JobID != jobID {
		return catalog.Job{}, apperr.NotFound("bid %s not found for job %s", bidID, jobID)
	}

	var accepted catalog.Job
	err = c.store.Transact(ctx, func(tx catalog.Store) error {
		open, inProgress := catalog.JobOpen, catalog.JobInProgress
		updated, err := tx.UpdateJob(ctx, jobID, catalog.JobUpdate{
			Status:            &inProgress,
			AssignedArtisanID: &bid.ArtisanID,
			ExpectStatus:      &open,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrConflict) {
				return apperr.InvalidState("job %s is not open", jobID)
			}
			return err
		}
		if _, err := escrow.Open(ctx, tx, jobID, bid.Amount); err != nil {
			return err
		}
		accepted = updated
		return nil
	})
	if err != nil {
		return catalog.Job{}, err
	}
	return accepted, nil
}

// MarkCompleted closes an IN_PROGRESS job, settles its escrow and folds the
// review score into the artisan's rating. Either side of the job may
// confirm. Score must be 1..5; the HTTP layer defaults an omitted review to
// the ceiling score.
func (c *Controller) MarkCompleted(ctx context.Context, jobID, callerID string, score int, comment string) (catalog.Job, error) {
	job, err := c.job(ctx, jobID)
	if err != nil {
		return catalog.Job{}, err
	}
	if callerID != job.OwnerID && (job.AssignedArtisanID == "" || callerID != job.AssignedArtisanID) {
		return catalog.Job{}, apperr.Forbidden("only the job owner or assigned artisan can complete this job")
	}
	if score < 1 || score > 5 {
		return catalog.Job{}, apperr.InvalidArgument("rating must be between 1 and 5")
	}
	if len(comment) > 1000 {
		return catalog.Job{}, apperr.InvalidArgument("comment too long (max 1000 characters)")
	}

	var completed catalog.Job
	err = c.store.Transact(ctx, func(tx catalog.Store) error {
		inProgress, done := catalog.JobInProgress, catalog.JobCompleted
		updated, err := tx.UpdateJob(ctx, jobID, catalog.JobUpdate{
			Status:       &done,
			ExpectStatus: &inProgress,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrConflict) {
				return apperr.InvalidState("job %s is not in progress", jobID)
			}
			return err
		}
		if _, err := escrow.Settle(ctx, tx, jobID); err != nil {
			return err
		}

		// One stored review per job; a rerun after a refunded dispute still
		// folds its outcome into the rating.
		if _, err := tx.GetJobReview(ctx, jobID); errors.Is(err, catalog.ErrNotFound) {
			_, err = tx.CreateReview(ctx, catalog.Review{
				ID:        uuid.New().String(),
				JobID:     jobID,
				OwnerID:   job.OwnerID,
				ArtisanID: updated.AssignedArtisanID,
				Rating:    score,
				Comment:   comment,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := c.ratings.RecordOutcome(ctx, tx, updated.AssignedArtisanID, float64(score)); err != nil {
			return err
		}
		completed = updated
		return nil
	})
	if err != nil {
		return catalog.Job{}, err
	}
	return completed, nil
}

// RaiseDispute freezes an IN_PROGRESS job in DISPUTED. Escrow stays PENDING
// (held) until the dispute resolves.
func (c *Controller) RaiseDispute(ctx context.Context, jobID, callerID, reason string) (catalog.Job, error) {
	job, err := c.job(ctx, jobID)
	if err != nil {
		return catalog.Job{}, err
	}
	if callerID != job.OwnerID && (job.AssignedArtisanID == "" || callerID != job.AssignedArtisanID) {
		return catalog.Job{}, apperr.Forbidden("only the job owner or assigned artisan can raise a dispute")
	}
	if strings.TrimSpace(reason) == "" {
		return catalog.Job{}, apperr.InvalidArgument("dispute reason is required")
	}

	var disputed catalog.Job
	err = c.store.Transact(ctx, func(tx catalog.Store) error {
		inProgress, status := catalog.JobInProgress, catalog.JobDisputed
		updated, err := tx.UpdateJob(ctx, jobID, catalog.JobUpdate{
			Status:       &status,
			ExpectStatus: &inProgress,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrConflict) {
				return apperr.InvalidState("job %s is not in progress", jobID)
			}
			return err
		}
		_, err = tx.CreateDispute(ctx, catalog.Dispute{
			ID:        uuid.New().String(),
			JobID:     jobID,
			FilerID:   callerID,
			Reason:    reason,
			Status:    "open",
			CreatedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		disputed = updated
		return nil
	})
	if err != nil {
		return catalog.Job{}, err
	}
	return disputed, nil
}

// ResolveDispute closes a DISPUTED job. RELEASE_TO_ARTISAN completes the job
// and settles escrow; REFUND_TO_OWNER reverses escrow and reopens the job
// with the assignment cleared, so a fresh bid can be accepted. Admin only.
func (c *Controller) ResolveDispute(ctx context.Context, jobID, outcome, callerID string) (catalog.Job, error) {
	caller, err := c.user(ctx, callerID)
	if err != nil {
		return catalog.Job{}, err
	}
	if caller.Role != catalog.RoleAdmin {
		return catalog.Job{}, apperr.Forbidden("only administrators can resolve disputes")
	}
	if outcome != catalog.OutcomeReleaseToArtisan && outcome != catalog.OutcomeRefundToOwner {
		return catalog.Job{}, apperr.InvalidArgument("unknown outcome %q", outcome)
	}
	if _, err := c.job(ctx, jobID); err != nil {
		return catalog.Job{}, err
	}

	var resolved catalog.Job
	err = c.store.Transact(ctx, func(tx catalog.Store) error {
		disputed := catalog.JobDisputed
		upd := catalog.JobUpdate{ExpectStatus: &disputed}
		if outcome == catalog.OutcomeReleaseToArtisan {
			done := catalog.JobCompleted
			upd.Status = &done
		} else {
			open := catalog.JobOpen
			upd.Status = &open
			upd.ClearAssigned = true
		}

		updated, err := tx.UpdateJob(ctx, jobID, upd)
		if err != nil {
			if errors.Is(err, catalog.ErrConflict) {
				return apperr.InvalidState("job %s is not disputed", jobID)
			}
			return err
		}

		if outcome == catalog.OutcomeReleaseToArtisan {
			_, err = escrow.Settle(ctx, tx, jobID)
		} else {
			_, err = escrow.Reverse(ctx, tx, jobID)
		}
		if err != nil {
			return err
		}

		if err := tx.ResolveDispute(ctx, jobID, outcome); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
		resolved = updated
		return nil
	})
	if err != nil {
		return catalog.Job{}, err
	}
	return resolved, nil
}
