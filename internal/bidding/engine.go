// Package bidding validates and records artisan bids against open jobs.
package bidding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/catalog"
)

type Engine struct {
	store catalog.Store
}

func NewEngine(store catalog.Store) *Engine {
	return &Engine{store: store}
}

// SubmitBid appends an immutable bid to an open job. The job budget is
// advisory context for the bidder, not a ceiling, so the amount is not
// checked against it. Bids need no lock: they are append-only and have no
// side effect on the job.
func (e *Engine) SubmitBid(ctx context.Context, jobID, artisanID string, amount int64, proposal string) (catalog.Bid, error) {
	if amount <= 0 {
		return catalog.Bid{}, apperr.InvalidArgument("bid amount must be positive")
	}
	if strings.TrimSpace(proposal) == "" {
		return catalog.Bid{}, apperr.InvalidArgument("proposal is required")
	}

	artisan, err := e.store.GetUser(ctx, artisanID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Bid{}, apperr.NotFound("user %s not found", artisanID)
		}
		return catalog.Bid{}, err
	}
	if artisan.Role != catalog.RoleArtisan {
		return catalog.Bid{}, apperr.Forbidden("only artisans can place bids")
	}

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Bid{}, apperr.NotFound("job %s not found", jobID)
		}
		return catalog.Bid{}, err
	}
	if job.Status != catalog.JobOpen {
		return catalog.Bid{}, apperr.InvalidState("job %s is not open for bids", jobID)
	}

	bid := catalog.Bid{
		ID:        uuid.New().String(),
		JobID:     jobID,
		ArtisanID: artisanID,
		Amount:    amount,
		Proposal:  proposal,
		CreatedAt: time.Now(),
	}
	bid, err = e.store.CreateBid(ctx, bid)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return catalog.Bid{}, apperr.NotFound("job %s not found", jobID)
		}
		return catalog.Bid{}, err
	}
	return bid, nil
}

// ListBids returns the bids a caller may see on a job: the job owner and
// admins see all of them, a bidding artisan sees only their own.
func (e *Engine) ListBids(ctx context.Context, jobID, callerID string) ([]catalog.Bid, error) {
	caller, err := e.store.GetUser(ctx, callerID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", callerID)
		}
		return nil, err
	}
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, apperr.NotFound("job %s not found", jobID)
		}
		return nil, err
	}

	bids, err := e.store.ListBids(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID == callerID || caller.Role == catalog.RoleAdmin {
		return bids, nil
	}
	if caller.Role == catalog.RoleArtisan {
		own := make([]catalog.Bid, 0, len(bids))
		for _, b := range bids {
			if b.ArtisanID == callerID {
				own = append(own, b)
			}
		}
		return own, nil
	}
	return nil, apperr.Forbidden("not allowed to view bids on this job")
}

// BidsByArtisan returns every bid the artisan has placed, newest first.
func (e *Engine) BidsByArtisan(ctx context.Context, artisanID string) ([]catalog.Bid, error) {
	return e.store.ListBidsByArtisan(ctx, artisanID)
}
