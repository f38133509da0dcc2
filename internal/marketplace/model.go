package marketplace

// CreateJobRequest is the payload for posting a job.
type CreateJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	LGA         string `json:"lga"`
	Budget      int64  `json:"budget"`
}

// CreateBidRequest is the payload for bidding on a job.
type CreateBidRequest struct {
	Amount   int64  `json:"amount"`
	Proposal string `json:"proposal"`
}

// AcceptBidRequest names the winning bid.
type AcceptBidRequest struct {
	BidID string `json:"bid_id"`
}

// CompleteJobRequest carries the optional review left at completion.
// A zero rating defaults to 5.
type CompleteJobRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// DisputeRequest opens a dispute.
type DisputeRequest struct {
	Reason string `json:"reason"`
}

// ResolveRequest closes a dispute with an outcome.
type ResolveRequest struct {
	Outcome string `json:"outcome"` // RELEASE_TO_ARTISAN | REFUND_TO_OWNER
}
