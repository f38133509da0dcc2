package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, s *MemoryStore, ownerID string) Job {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, User{ID: ownerID, Email: ownerID + "@example.com", Role: RoleOwner})
	if err != nil && !errors.Is(err, ErrConflict) {
		t.Fatalf("seed user: %v", err)
	}
	job, err := s.CreateJob(ctx, Job{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     "Fix kitchen sink",
		Category:  "Plumbing",
		LGA:       "Ado-Ekiti",
		Budget:    5000,
		Status:    JobOpen,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return job
}

func TestMemoryStoreJobCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := seedJob(t, s, "owner-1")

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, JobOpen, got.Status)

	_, err = s.GetJob(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateJob(ctx, Job{ID: job.ID, OwnerID: "owner-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStoreListJobsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	j1 := seedJob(t, s, "owner-1")

	j2, err := s.CreateJob(ctx, Job{
		ID: uuid.New().String(), OwnerID: "owner-1", Title: "Rewire shop",
		Category: "Electrical", LGA: "Ikere", Budget: 9000, Status: JobOpen,
	})
	require.NoError(t, err)

	jobs, err := s.ListJobs(ctx, JobFilter{Status: JobOpen})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	// Newest first
	assert.Equal(t, j2.ID, jobs[0].ID)
	assert.Equal(t, j1.ID, jobs[1].ID)

	jobs, err = s.ListJobs(ctx, JobFilter{LGA: "Ikere"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j2.ID, jobs[0].ID)

	jobs, err = s.ListJobs(ctx, JobFilter{Category: "Plumbing"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j1.ID, jobs[0].ID)
}

func TestMemoryStoreUpdateJobCAS(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := seedJob(t, s, "owner-1")

	open, inProgress := JobOpen, JobInProgress
	artisan := "artisan-1"
	updated, err := s.UpdateJob(ctx, job.ID, JobUpdate{
		Status:            &inProgress,
		AssignedArtisanID: &artisan,
		ExpectStatus:      &open,
	})
	require.NoError(t, err)
	assert.Equal(t, JobInProgress, updated.Status)
	assert.Equal(t, artisan, updated.AssignedArtisanID)

	// A second swap from OPEN must lose
	_, err = s.UpdateJob(ctx, job.ID, JobUpdate{Status: &inProgress, ExpectStatus: &open})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.UpdateJob(ctx, "nope", JobUpdate{Status: &inProgress})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreBidForeignKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := seedJob(t, s, "owner-1")

	_, err := s.CreateBid(ctx, Bid{ID: uuid.New().String(), JobID: "missing", ArtisanID: "a"})
	assert.ErrorIs(t, err, ErrConflict)

	b, err := s.CreateBid(ctx, Bid{ID: uuid.New().String(), JobID: job.ID, ArtisanID: "a", Amount: 3000, Proposal: "ok"})
	require.NoError(t, err)

	bids, err := s.ListBids(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, b.ID, bids[0].ID)
}

func TestMemoryStoreEscrowLifetime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := seedJob(t, s, "owner-1")

	_, err := s.CreateEscrow(ctx, EscrowRecord{JobID: job.ID, Amount: 3000, Status: EscrowPending, Type: EscrowTypePayment})
	require.NoError(t, err)

	// Only one live record per job
	_, err = s.CreateEscrow(ctx, EscrowRecord{JobID: job.ID, Amount: 4000, Status: EscrowPending, Type: EscrowTypePayment})
	assert.ErrorIs(t, err, ErrConflict)

	rec, err := s.UpdateEscrow(ctx, job.ID, EscrowUpdate{Status: EscrowReversed, Type: EscrowTypeRefund})
	require.NoError(t, err)
	assert.Equal(t, EscrowReversed, rec.Status)

	// Settled/reversed records refuse further transitions
	_, err = s.UpdateEscrow(ctx, job.ID, EscrowUpdate{Status: EscrowSuccess, Type: EscrowTypeRelease})
	assert.ErrorIs(t, err, ErrConflict)

	// A reversed record may be replaced by a fresh hold
	_, err = s.CreateEscrow(ctx, EscrowRecord{JobID: job.ID, Amount: 4500, Status: EscrowPending, Type: EscrowTypePayment})
	require.NoError(t, err)
}

func TestMemoryStoreTransactRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := seedJob(t, s, "owner-1")

	boom := errors.New("boom")
	err := s.Transact(ctx, func(tx Store) error {
		inProgress := JobInProgress
		if _, err := tx.UpdateJob(ctx, job.ID, JobUpdate{Status: &inProgress}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobOpen, got.Status, "failed transaction must not leave partial writes")
}
