package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps all records in process memory behind one mutex. It backs
// tests and local demo mode; the Postgres store is the production path.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

type memState struct {
	users    map[string]User
	byEmail  map[string]string
	jobs     map[string]Job
	jobSeq   []string
	bids     map[string]Bid
	bidSeq   []string
	escrows  map[string]EscrowRecord
	ratings  map[string]RatingState
	disputes map[string]Dispute
	dispSeq  []string
	reviews  map[string]Review
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		jobs:     make(map[string]Job),
		bids:     make(map[string]Bid),
		escrows:  make(map[string]EscrowRecord),
		ratings:  make(map[string]RatingState),
		disputes: make(map[string]Dispute),
		reviews:  make(map[string]Review),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[string]User, len(s.users)),
		byEmail:  make(map[string]string, len(s.byEmail)),
		jobs:     make(map[string]Job, len(s.jobs)),
		jobSeq:   append([]string(nil), s.jobSeq...),
		bids:     make(map[string]Bid, len(s.bids)),
		bidSeq:   append([]string(nil), s.bidSeq...),
		escrows:  make(map[string]EscrowRecord, len(s.escrows)),
		ratings:  make(map[string]RatingState, len(s.ratings)),
		disputes: make(map[string]Dispute, len(s.disputes)),
		dispSeq:  append([]string(nil), s.dispSeq...),
		reviews:  make(map[string]Review, len(s.reviews)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.bids {
		c.bids[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = v
	}
	for k, v := range s.ratings {
		c.ratings[k] = v
	}
	for k, v := range s.disputes {
		c.disputes[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	return c
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createUser(u)
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getUser(id)
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getUserByEmail(email)
}

func (m *MemoryStore) CreateJob(_ context.Context, j Job) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createJob(j)
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getJob(id)
}

func (m *MemoryStore) ListJobs(_ context.Context, f JobFilter) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listJobs(f)
}

func (m *MemoryStore) UpdateJob(_ context.Context, id string, upd JobUpdate) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateJob(id, upd)
}

func (m *MemoryStore) CreateBid(_ context.Context, b Bid) (Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createBid(b)
}

func (m *MemoryStore) GetBid(_ context.Context, id string) (Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getBid(id)
}

func (m *MemoryStore) ListBids(_ context.Context, jobID string) ([]Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listBids(jobID)
}

func (m *MemoryStore) ListBidsByArtisan(_ context.Context, artisanID string) ([]Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listBidsByArtisan(artisanID)
}

func (m *MemoryStore) CreateEscrow(_ context.Context, r EscrowRecord) (EscrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createEscrow(r)
}

func (m *MemoryStore) GetEscrow(_ context.Context, jobID string) (EscrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getEscrow(jobID)
}

func (m *MemoryStore) UpdateEscrow(_ context.Context, jobID string, upd EscrowUpdate) (EscrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateEscrow(jobID, upd)
}

func (m *MemoryStore) GetRating(_ context.Context, artisanID string) (RatingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getRating(artisanID)
}

func (m *MemoryStore) PutRating(_ context.Context, r RatingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.putRating(r)
}

func (m *MemoryStore) CreateDispute(_ context.Context, d Dispute) (Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createDispute(d)
}

func (m *MemoryStore) ResolveDispute(_ context.Context, jobID, resolution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.resolveDispute(jobID, resolution)
}

func (m *MemoryStore) CreateReview(_ context.Context, r Review) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createReview(r)
}

func (m *MemoryStore) GetJobReview(_ context.Context, jobID string) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getJobReview(jobID)
}

// Transact holds the store lock for the duration of fn and rolls the state
// back to a snapshot if fn fails, so no partial writes survive.
func (m *MemoryStore) Transact(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(&memTx{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// memTx is the in-transaction view; the outer lock is already held.
type memTx struct {
	st *memState
}

func (t *memTx) CreateUser(_ context.Context, u User) (User, error)     { return t.st.createUser(u) }
func (t *memTx) GetUser(_ context.Context, id string) (User, error)     { return t.st.getUser(id) }
func (t *memTx) GetUserByEmail(_ context.Context, e string) (User, error) {
	return t.st.getUserByEmail(e)
}
func (t *memTx) CreateJob(_ context.Context, j Job) (Job, error) { return t.st.createJob(j) }
func (t *memTx) GetJob(_ context.Context, id string) (Job, error) {
	return t.st.getJob(id)
}
func (t *memTx) ListJobs(_ context.Context, f JobFilter) ([]Job, error) { return t.st.listJobs(f) }
func (t *memTx) UpdateJob(_ context.Context, id string, upd JobUpdate) (Job, error) {
	return t.st.updateJob(id, upd)
}
func (t *memTx) CreateBid(_ context.Context, b Bid) (Bid, error) { return t.st.createBid(b) }
func (t *memTx) GetBid(_ context.Context, id string) (Bid, error) {
	return t.st.getBid(id)
}
func (t *memTx) ListBids(_ context.Context, jobID string) ([]Bid, error) {
	return t.st.listBids(jobID)
}
func (t *memTx) ListBidsByArtisan(_ context.Context, artisanID string) ([]Bid, error) {
	return t.st.listBidsByArtisan(artisanID)
}
func (t *memTx) CreateEscrow(_ context.Context, r EscrowRecord) (EscrowRecord, error) {
	return t.st.createEscrow(r)
}
func (t *memTx) GetEscrow(_ context.Context, jobID string) (EscrowRecord, error) {
	return t.st.getEscrow(jobID)
}
func (t *memTx) UpdateEscrow(_ context.Context, jobID string, upd EscrowUpdate) (EscrowRecord, error) {
	return t.st.updateEscrow(jobID, upd)
}
func (t *memTx) GetRating(_ context.Context, artisanID string) (RatingState, error) {
	return t.st.getRating(artisanID)
}
func (t *memTx) PutRating(_ context.Context, r RatingState) error { return t.st.putRating(r) }
func (t *memTx) CreateDispute(_ context.Context, d Dispute) (Dispute, error) {
	return t.st.createDispute(d)
}
func (t *memTx) ResolveDispute(_ context.Context, jobID, resolution string) error {
	return t.st.resolveDispute(jobID, resolution)
}
func (t *memTx) CreateReview(_ context.Context, r Review) (Review, error) {
	return t.st.createReview(r)
}
func (t *memTx) GetJobReview(_ context.Context, jobID string) (Review, error) {
	return t.st.getJobReview(jobID)
}
func (t *memTx) Transact(_ context.Context, fn func(Store) error) error { return fn(t) }

func (s *memState) createUser(u User) (User, error) {
	if _, ok := s.users[u.ID]; ok {
		return User{}, ErrConflict
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return User{}, ErrConflict
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *memState) getUser(id string) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *memState) getUserByEmail(email string) (User, error) {
	id, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *memState) createJob(j Job) (Job, error) {
	if _, ok := s.jobs[j.ID]; ok {
		return Job{}, ErrConflict
	}
	s.jobs[j.ID] = j
	s.jobSeq = append(s.jobSeq, j.ID)
	return j, nil
}

func (s *memState) getJob(id string) (Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return j, nil
}

func (s *memState) listJobs(f JobFilter) ([]Job, error) {
	out := make([]Job, 0, len(s.jobSeq))
	// Newest first, matching the Postgres ORDER BY created_at DESC.
	for i := len(s.jobSeq) - 1; i >= 0; i-- {
		j := s.jobs[s.jobSeq[i]]
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		if f.Category != "" && j.Category != f.Category {
			continue
		}
		if f.LGA != "" && j.LGA != f.LGA {
			continue
		}
		if f.OwnerID != "" && j.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *memState) updateJob(id string, upd JobUpdate) (Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if upd.ExpectStatus != nil && j.Status != *upd.ExpectStatus {
		return Job{}, ErrConflict
	}
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.AssignedArtisanID != nil {
		j.AssignedArtisanID = *upd.AssignedArtisanID
	}
	if upd.ClearAssigned {
		j.AssignedArtisanID = ""
	}
	s.jobs[id] = j
	return j, nil
}

func (s *memState) createBid(b Bid) (Bid, error) {
	if _, ok := s.bids[b.ID]; ok {
		return Bid{}, ErrConflict
	}
	if _, ok := s.jobs[b.JobID]; !ok {
		return Bid{}, ErrConflict
	}
	s.bids[b.ID] = b
	s.bidSeq = append(s.bidSeq, b.ID)
	return b, nil
}

func (s *memState) getBid(id string) (Bid, error) {
	b, ok := s.bids[id]
	if !ok {
		return Bid{}, ErrNotFound
	}
	return b, nil
}

func (s *memState) listBids(jobID string) ([]Bid, error) {
	var out []Bid
	for i := len(s.bidSeq) - 1; i >= 0; i-- {
		if b := s.bids[s.bidSeq[i]]; b.JobID == jobID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memState) listBidsByArtisan(artisanID string) ([]Bid, error) {
	var out []Bid
	for i := len(s.bidSeq) - 1; i >= 0; i-- {
		if b := s.bids[s.bidSeq[i]]; b.ArtisanID == artisanID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memState) createEscrow(r EscrowRecord) (EscrowRecord, error) {
	if _, ok := s.jobs[r.JobID]; !ok {
		return EscrowRecord{}, ErrConflict
	}
	// A reversed record belongs to a closed job run and may be replaced.
	if prev, ok := s.escrows[r.JobID]; ok && prev.Status != EscrowReversed {
		return EscrowRecord{}, ErrConflict
	}
	s.escrows[r.JobID] = r
	return r, nil
}

func (s *memState) getEscrow(jobID string) (EscrowRecord, error) {
	r, ok := s.escrows[jobID]
	if !ok {
		return EscrowRecord{}, ErrNotFound
	}
	return r, nil
}

func (s *memState) updateEscrow(jobID string, upd EscrowUpdate) (EscrowRecord, error) {
	r, ok := s.escrows[jobID]
	if !ok {
		return EscrowRecord{}, ErrNotFound
	}
	if r.Status != EscrowPending {
		return EscrowRecord{}, ErrConflict
	}
	r.Status = upd.Status
	r.Type = upd.Type
	s.escrows[jobID] = r
	return r, nil
}

func (s *memState) getRating(artisanID string) (RatingState, error) {
	r, ok := s.ratings[artisanID]
	if !ok {
		return RatingState{}, ErrNotFound
	}
	return r, nil
}

func (s *memState) putRating(r RatingState) error {
	s.ratings[r.ArtisanID] = r
	return nil
}

func (s *memState) createDispute(d Dispute) (Dispute, error) {
	if _, ok := s.jobs[d.JobID]; !ok {
		return Dispute{}, ErrConflict
	}
	if _, ok := s.disputes[d.ID]; ok {
		return Dispute{}, ErrConflict
	}
	s.disputes[d.ID] = d
	s.dispSeq = append(s.dispSeq, d.ID)
	return d, nil
}

func (s *memState) resolveDispute(jobID, resolution string) error {
	found := false
	for _, id := range s.dispSeq {
		d := s.disputes[id]
		if d.JobID == jobID && d.Status == "open" {
			d.Status = "resolved"
			d.Resolution = resolution
			d.ResolvedAt = time.Now()
			s.disputes[id] = d
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *memState) createReview(r Review) (Review, error) {
	if _, ok := s.jobs[r.JobID]; !ok {
		return Review{}, ErrConflict
	}
	if _, ok := s.reviews[r.JobID]; ok {
		return Review{}, ErrConflict
	}
	s.reviews[r.JobID] = r
	return r, nil
}

func (s *memState) getJobReview(jobID string) (Review, error) {
	r, ok := s.reviews[jobID]
	if !ok {
		return Review{}, ErrNotFound
	}
	return r, nil
}
