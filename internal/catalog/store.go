package catalog

import (
	"context"
	"errors"
)

// Store failures. The engine translates these into caller-facing error kinds.
var (
	ErrNotFound = errors.New("catalog: not found")
	ErrConflict = errors.New("catalog: constraint violation")
)

// JobFilter narrows ListJobs. Zero values mean "any".
type JobFilter struct {
	Status   string
	Category string
	LGA      string
	OwnerID  string
}

// JobUpdate is a partial update. ExpectStatus, when set, makes the update a
// compare-and-swap: it fails with ErrConflict unless the job currently holds
// that status.
type JobUpdate struct {
	Status            *string
	AssignedArtisanID *string
	ClearAssigned     bool
	ExpectStatus      *string
}

// EscrowUpdate moves a PENDING record to SUCCESS or REVERSED. It fails with
// ErrConflict unless the current record is PENDING.
type EscrowUpdate struct {
	Status string
	Type   string
}

// Store is pure data access; it enforces referential integrity and the
// compare-and-swap preconditions above, never business rules.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateJob(ctx context.Context, j Job) (Job, error)
	GetJob(ctx context.Context, id string) (Job, error)
	ListJobs(ctx context.Context, f JobFilter) ([]Job, error)
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (Job, error)

	CreateBid(ctx context.Context, b Bid) (Bid, error)
	GetBid(ctx context.Context, id string) (Bid, error)
	ListBids(ctx context.Context, jobID string) ([]Bid, error)
	ListBidsByArtisan(ctx context.Context, artisanID string) ([]Bid, error)

	CreateEscrow(ctx context.Context, r EscrowRecord) (EscrowRecord, error)
	GetEscrow(ctx context.Context, jobID string) (EscrowRecord, error)
	UpdateEscrow(ctx context.Context, jobID string, upd EscrowUpdate) (EscrowRecord, error)

	GetRating(ctx context.Context, artisanID string) (RatingState, error)
	PutRating(ctx context.Context, r RatingState) error

	CreateDispute(ctx context.Context, d Dispute) (Dispute, error)
	ResolveDispute(ctx context.Context, jobID, resolution string) error

	CreateReview(ctx context.Context, r Review) (Review, error)
	GetJobReview(ctx context.Context, jobID string) (Review, error)

	// Transact runs fn against a store view whose mutations apply atomically:
	// either every write in fn lands, or none do.
	Transact(ctx context.Context, fn func(Store) error) error
}
