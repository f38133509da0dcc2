package catalog

import "time"

// User roles. Admins are created only through the adminutil.
const (
	RoleOwner   = "OWNER"
	RoleArtisan = "ARTISAN"
	RoleAdmin   = "ADMIN"
)

// Job statuses
const (
	JobOpen       = "OPEN"
	JobInProgress = "IN_PROGRESS"
	JobCompleted  = "COMPLETED"
	JobDisputed   = "DISPUTED"
)

// Escrow record statuses
const (
	EscrowPending  = "PENDING"
	EscrowSuccess  = "SUCCESS"
	EscrowReversed = "REVERSED"
)

// Escrow record types
const (
	EscrowTypePayment = "PAYMENT"
	EscrowTypeRelease = "ESCROW_RELEASE"
	EscrowTypeRefund  = "REFUND"
)

// Dispute resolution outcomes
const (
	OutcomeReleaseToArtisan = "RELEASE_TO_ARTISAN"
	OutcomeRefundToOwner    = "REFUND_TO_OWNER"
)

// User is consumed read-only by the engine; auth owns its lifecycle.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Job is created OPEN by an owner and mutated only by the lifecycle controller.
type Job struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	LGA               string    `json:"lga"`
	Budget            int64     `json:"budget"`
	Status            string    `json:"status"`
	AssignedArtisanID string    `json:"assigned_artisan_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Bid is an append-only record; there is no withdrawal or update.
type Bid struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	ArtisanID string    `json:"artisan_id"`
	Amount    int64     `json:"amount"`
	Proposal  string    `json:"proposal"`
	CreatedAt time.Time `json:"created_at"`
}

// EscrowRecord is the authoritative commitment state for a job's funds.
// At most one live record exists per job.
type EscrowRecord struct {
	JobID     string    `json:"job_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingState is the running review aggregate for an artisan.
type RatingState struct {
	ArtisanID   string  `json:"artisan_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// Dispute records who raised a dispute and how it closed.
type Dispute struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	FilerID    string    `json:"filer_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"` // open, resolved
	Resolution string    `json:"resolution,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// Review is the rating left when a job run completes.
type Review struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	OwnerID   string    `json:"owner_id"`
	ArtisanID string    `json:"artisan_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
