package rating

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/catalog"
)

func TestGetDefaultsToCeiling(t *testing.T) {
	store := catalog.NewMemoryStore()
	agg := NewAggregator(store)

	state, err := agg.Get(context.Background(), "artisan-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, state.Rating)
	assert.Equal(t, 0, state.ReviewCount)
}

func TestRecordOutcomeWeightedAverage(t *testing.T) {
	store := catalog.NewMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()

	// First review replaces the default entirely: count was zero.
	state, err := agg.RecordOutcome(ctx, store, "artisan-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, state.Rating)
	assert.Equal(t, 1, state.ReviewCount)

	// (3*1 + 5) / 2 = 4
	state, err = agg.RecordOutcome(ctx, store, "artisan-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 4.0, state.Rating)
	assert.Equal(t, 2, state.ReviewCount)

	// (4*2 + 1) / 3 = 3
	state, err = agg.RecordOutcome(ctx, store, "artisan-1", 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, state.Rating, 1e-9)
	assert.Equal(t, 3, state.ReviewCount)
}

func TestRecordOutcomeScoreBounds(t *testing.T) {
	store := catalog.NewMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()

	for _, score := range []float64{0, -1, 6} {
		_, err := agg.RecordOutcome(ctx, store, "artisan-1", score)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	}

	state, err := agg.Get(ctx, "artisan-1")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ReviewCount, "rejected scores leave no trace")
}

func TestArtisansAreIndependent(t *testing.T) {
	store := catalog.NewMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()

	_, err := agg.RecordOutcome(ctx, store, "artisan-1", 1)
	require.NoError(t, err)

	state, err := agg.Get(ctx, "artisan-2")
	require.NoError(t, err)
	assert.Equal(t, DefaultRating, state.Rating)
}

func TestConcurrentOutcomesLoseNothing(t *testing.T) {
	store := catalog.NewMemoryStore()
	agg := NewAggregator(store)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := agg.RecordOutcome(ctx, store, "artisan-1", float64(1+i%5))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := agg.Get(ctx, "artisan-1")
	require.NoError(t, err)
	assert.Equal(t, n, state.ReviewCount, "every concurrent review is counted")
	assert.GreaterOrEqual(t, state.Rating, 1.0)
	assert.LessOrEqual(t, state.Rating, 5.0)
}
