package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanconnect/backend/internal/apperr"
	"github.com/artisanconnect/backend/internal/bidding"
	"github.com/artisanconnect/backend/internal/catalog"
	"github.com/artisanconnect/backend/internal/rating"
)

type fixture struct {
	store      *catalog.MemoryStore
	controller *Controller
	bids       *bidding.Engine
	ratings    *rating.Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	users := []catalog.User{
		{ID: "owner-1", Email: "owner@example.com", Role: catalog.RoleOwner},
		{ID: "artisan-1", Email: "a1@example.com", Role: catalog.RoleArtisan},
		{ID: "artisan-2", Email: "a2@example.com", Role: catalog.RoleArtisan},
		{ID: "admin-1", Email: "admin@example.com", Role: catalog.RoleAdmin},
	}
	for _, u := range users {
		_, err := store.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	ratings := rating.NewAggregator(store)
	return &fixture{
		store:      store,
		controller: NewController(store, ratings),
		bids:       bidding.NewEngine(store),
		ratings:    ratings,
	}
}

func (f *fixture) postJob(t *testing.T) catalog.Job {
	t.Helper()
	job, err := f.controller.PostJob(context.Background(), "owner-1",
		"Repaint the shopfront", "Two coats, emerald green", "Painting", "Ado-Ekiti", 10000)
	require.NoError(t, err)
	return job
}

func (f *fixture) bid(t *testing.T, jobID, artisanID string, amount int64) catalog.Bid {
	t.Helper()
	bid, err := f.bids.SubmitBid(context.Background(), jobID, artisanID, amount, "I can do this")
	require.NoError(t, err)
	return bid
}

func TestPostJobValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.controller.PostJob(ctx, "artisan-1", "t", "d", "Painting", "Oye", 100)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "artisans cannot post jobs")

	_, err = f.controller.PostJob(ctx, "owner-1", "", "d", "Painting", "Oye", 100)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = f.controller.PostJob(ctx, "owner-1", "t", "d", "Painting", "Oye", 0)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = f.controller.PostJob(ctx, "owner-1", "t", "d", "Knitting", "Oye", 100)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err), "unknown category")

	_, err = f.controller.PostJob(ctx, "owner-1", "t", "d", "Painting", "Lagos", 100)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err), "unknown LGA")

	_, err = f.controller.PostJob(ctx, "ghost", "t", "d", "Painting", "Oye", 100)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAcceptBidHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 3000)

	accepted, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobInProgress, accepted.Status)
	assert.Equal(t, "artisan-1", accepted.AssignedArtisanID)

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowPending, rec.Status)
	assert.Equal(t, catalog.EscrowTypePayment, rec.Type)
	assert.Equal(t, int64(3000), rec.Amount)
}

func TestAcceptBidPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 3000)

	_, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "artisan-1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "only the owner accepts")

	other := f.postJob(t)
	_, err = f.controller.AcceptBid(ctx, other.ID, bid.ID, "owner-1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "bid must belong to the job")

	_, err = f.controller.AcceptBid(ctx, job.ID, "missing", "owner-1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSecondAcceptFailsAndLeavesFirstUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid1 := f.bid(t, job.ID, "artisan-1", 3000)
	bid2 := f.bid(t, job.ID, "artisan-2", 2500)

	_, err := f.controller.AcceptBid(ctx, job.ID, bid1.ID, "owner-1")
	require.NoError(t, err)

	_, err = f.controller.AcceptBid(ctx, job.ID, bid2.ID, "owner-1")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	got, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "artisan-1", got.AssignedArtisanID, "original acceptance untouched")

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), rec.Amount)
}

func TestConcurrentAcceptExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid1 := f.bid(t, job.ID, "artisan-1", 3000)
	bid2 := f.bid(t, job.ID, "artisan-2", 2500)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, bidID := range []string{bid1.ID, bid2.ID} {
		wg.Add(1)
		go func(i int, bidID string) {
			defer wg.Done()
			_, errs[i] = f.controller.AcceptBid(ctx, job.ID, bidID, "owner-1")
		}(i, bidID)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent accept may win")

	got, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.JobInProgress, got.Status)
	assert.NotEmpty(t, got.AssignedArtisanID)
}

func TestRoundTripCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 3000)

	before, err := f.ratings.Get(ctx, "artisan-1")
	require.NoError(t, err)
	assert.Equal(t, 0, before.ReviewCount)

	_, err = f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)

	done, err := f.controller.MarkCompleted(ctx, job.ID, "owner-1", 5, "great work")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobCompleted, done.Status)

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowSuccess, rec.Status)
	assert.Equal(t, catalog.EscrowTypeRelease, rec.Type)

	after, err := f.ratings.Get(ctx, "artisan-1")
	require.NoError(t, err)
	assert.Equal(t, before.ReviewCount+1, after.ReviewCount)

	review, err := f.store.GetJobReview(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "artisan-1", review.ArtisanID)
}

func TestMarkCompletedByAssignedArtisan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 3000)
	_, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)

	done, err := f.controller.MarkCompleted(ctx, job.ID, "artisan-1", 4, "")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobCompleted, done.Status)
}

func TestMarkCompletedGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)

	_, err := f.controller.MarkCompleted(ctx, job.ID, "owner-1", 5, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "an OPEN job cannot complete")

	_, err = f.controller.MarkCompleted(ctx, job.ID, "artisan-1", 5, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "no assigned artisan yet")

	bid := f.bid(t, job.ID, "artisan-1", 3000)
	_, err = f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)

	_, err = f.controller.MarkCompleted(ctx, job.ID, "artisan-2", 5, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "unrelated artisan cannot complete")

	_, err = f.controller.MarkCompleted(ctx, job.ID, "owner-1", 9, "")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = f.controller.MarkCompleted(ctx, job.ID, "owner-1", 5, "")
	require.NoError(t, err)

	_, err = f.controller.MarkCompleted(ctx, job.ID, "owner-1", 5, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "COMPLETED is terminal")
}

func TestDisputeHoldsEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 5000)
	_, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)

	disputed, err := f.controller.RaiseDispute(ctx, job.ID, "artisan-1", "owner unreachable")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobDisputed, disputed.Status)

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowPending, rec.Status, "funds stay held while disputed")

	_, err = f.controller.RaiseDispute(ctx, job.ID, "owner-1", "already disputed")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestResolveDisputeRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 5000)
	_, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)
	_, err = f.controller.RaiseDispute(ctx, job.ID, "owner-1", "work is late")
	require.NoError(t, err)

	_, err = f.controller.ResolveDispute(ctx, job.ID, catalog.OutcomeReleaseToArtisan, "owner-1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), "admin only")

	resolved, err := f.controller.ResolveDispute(ctx, job.ID, catalog.OutcomeReleaseToArtisan, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobCompleted, resolved.Status)

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowSuccess, rec.Status)
}

func TestDisputeRefundReopensJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)
	bid := f.bid(t, job.ID, "artisan-1", 5000)
	_, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)
	_, err = f.controller.RaiseDispute(ctx, job.ID, "owner-1", "not the agreed work")
	require.NoError(t, err)

	reopened, err := f.controller.ResolveDispute(ctx, job.ID, catalog.OutcomeRefundToOwner, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobOpen, reopened.Status)
	assert.Empty(t, reopened.AssignedArtisanID)

	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowReversed, rec.Status)
	assert.Equal(t, catalog.EscrowTypeRefund, rec.Type)

	// The reopened job accepts a fresh bid and holds new escrow
	bid2 := f.bid(t, job.ID, "artisan-2", 4500)
	again, err := f.controller.AcceptBid(ctx, job.ID, bid2.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.JobInProgress, again.Status)
	assert.Equal(t, "artisan-2", again.AssignedArtisanID)

	rec, err = f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowPending, rec.Status)
	assert.Equal(t, int64(4500), rec.Amount)
}

func TestResolveDisputeGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)

	_, err := f.controller.ResolveDispute(ctx, job.ID, "SPLIT", "admin-1")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = f.controller.ResolveDispute(ctx, job.ID, catalog.OutcomeReleaseToArtisan, "admin-1")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "job is not disputed")

	_, err = f.controller.ResolveDispute(ctx, "missing", catalog.OutcomeReleaseToArtisan, "admin-1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInProgressInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.postJob(t)

	// OPEN implies no pending escrow
	_, err := f.store.GetEscrow(ctx, job.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	bid := f.bid(t, job.ID, "artisan-1", 3000)
	accepted, err := f.controller.AcceptBid(ctx, job.ID, bid.ID, "owner-1")
	require.NoError(t, err)

	// IN_PROGRESS implies an assignee and exactly one PENDING record
	assert.NotEmpty(t, accepted.AssignedArtisanID)
	rec, err := f.store.GetEscrow(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.EscrowPending, rec.Status)
}
