// Package rating folds completed-job reviews into an artisan's running score.
package rating

import (
	"context"
	"errors"
	"sync"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/catalog"
)

// New artisans start at the ceiling score.
const DefaultRating = 5.0

// Aggregator serializes rating updates per artisan so concurrent job
// completions cannot lose a review.
type Aggregator struct {
	store catalog.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAggregator(store catalog.Store) *Aggregator {
	return &Aggregator{store: store, locks: make(map[string]*sync.Mutex)}
}

func (a *Aggregator) lockFor(artisanID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[artisanID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[artisanID] = l
	}
	return l
}

// Get returns the artisan's rating state; artisans with no reviews yet are
// reported at the default.
func (a *Aggregator) Get(ctx context.Context, artisanID string) (catalog.RatingState, error) {
	r, err := a.store.GetRating(ctx, artisanID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.RatingState{ArtisanID: artisanID, Rating: DefaultRating}, nil
		}
		return catalog.RatingState{}, err
	}
	return r, nil
}

// RecordOutcome folds a review score into the artisan's running average.
// s is the store to write through — the caller's transactional view when the
// fold is part of a lifecycle transition.
func (a *Aggregator) RecordOutcome(ctx context.Context, s catalog.Store, artisanID string, score float64) (catalog.RatingState, error) {
	if score < 1 || score > 5 {
		return catalog.RatingState{}, apperr.InvalidArgument("review score must be between 1 and 5")
	}

	l := a.lockFor(artisanID)
	l.Lock()
	defer l.Unlock()

	cur, err := s.GetRating(ctx, artisanID)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			return catalog.RatingState{}, err
		}
		cur = catalog.RatingState{ArtisanID: artisanID, Rating: DefaultRating}
	}

	next := catalog.RatingState{
		ArtisanID:   artisanID,
		Rating:      (cur.Rating*float64(cur.ReviewCount) + score) / float64(cur.ReviewCount+1),
		ReviewCount: cur.ReviewCount + 1,
	}
	if err := s.PutRating(ctx, next); err != nil {
		return catalog.RatingState{}, err
	}
	return next, nil
}
