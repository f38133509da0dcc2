package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail    = "email:welcome"
	TaskBidReceived     = "email:bid_received"
	TaskBidAccepted     = "email:bid_accepted"
	TaskJobCompleted    = "email:job_completed"
	TaskDisputeOpened   = "email:dispute_opened"
	TaskDisputeResolved = "email:dispute_resolved"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Bid received payload (sent to the job owner)
type BidReceivedPayload struct {
	JobID    string        `json:"job_id"`
	BidID    string        `json:"bid_id"`
	Email    string        `json:"email"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Bid accepted payload (sent to the winning artisan)
type BidAcceptedPayload struct {
	JobID    string        `json:"job_id"`
	BidID    string        `json:"bid_id"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Job completed payload (sent to the artisan on escrow release)
type JobCompletedPayload struct {
	JobID    string        `json:"job_id"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Dispute event payload (sent to admins)
type DisputePayload struct {
	JobID    string        `json:"job_id"`
	FilerID  string        `json:"filer_id,omitempty"`
	Detail   string        `json:"detail"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
