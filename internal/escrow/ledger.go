// Package escrow tracks per-job fund commitment. Records here are the
// authoritative state a real payments integration consumes; no money moves.
package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/catalog"
)

// Open holds the accepted bid amount for a job. Fails InvalidState when a
// live (non-reversed) record already exists for the job.
func Open(ctx context.Context, s catalog.Store, jobID string, amount int64) (catalog.EscrowRecord, error) {
	rec := catalog.EscrowRecord{
		JobID:     jobID,
		Amount:    amount,
		Status:    catalog.EscrowPending,
		Type:      catalog.EscrowTypePayment,
		Timestamp: time.Now(),
	}
	rec, err := s.CreateEscrow(ctx, rec)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return catalog.EscrowRecord{}, apperr.InvalidState("escrow already held for job %s", jobID)
		}
		return catalog.EscrowRecord{}, err
	}
	return rec, nil
}

// Settle releases held funds to the artisan: PENDING -> SUCCESS.
func Settle(ctx context.Context, s catalog.Store, jobID string) (catalog.EscrowRecord, error) {
	return transition(ctx, s, jobID, catalog.EscrowUpdate{
		Status: catalog.EscrowSuccess,
		Type:   catalog.EscrowTypeRelease,
	})
}

// Reverse refunds held funds to the owner: PENDING -> REVERSED.
func Reverse(ctx context.Context, s catalog.Store, jobID string) (catalog.EscrowRecord, error) {
	return transition(ctx, s, jobID, catalog.EscrowUpdate{
		Status: catalog.EscrowReversed,
		Type:   catalog.EscrowTypeRefund,
	})
}

// Get returns the job's current escrow record.
func Get(ctx context.Context, s catalog.Store, jobID string) (catalog.EscrowRecord, error) {
	rec, err := s.GetEscrow(ctx, jobID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.EscrowRecord{}, apperr.NotFound("no escrow record for job %s", jobID)
		}
		return catalog.EscrowRecord{}, err
	}
	return rec, nil
}

func transition(ctx context.Context, s catalog.Store, jobID string, upd catalog.EscrowUpdate) (catalog.EscrowRecord, error) {
	rec, err := s.UpdateEscrow(ctx, jobID, upd)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return catalog.EscrowRecord{}, apperr.NotFound("no escrow record for job %s", jobID)
		case errors.Is(err, catalog.ErrConflict):
			return catalog.EscrowRecord{}, apperr.InvalidState("escrow for job %s is not pending", jobID)
		}
		return catalog.EscrowRecord{}, err
	}
	return rec, nil
}
