package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store
// code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the production Store backed by pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 unique_violation, 23503 foreign_key_violation
		if pgErr.Code == "23505" || pgErr.Code == "23503" {
			return ErrConflict
		}
	}
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role, is_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.Password, u.Role, u.IsVerified, u.CreatedAt,
	)
	if err != nil {
		return User{}, mapPgErr(err)
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.q.QueryRow(ctx,
		`SELECT id, name, email, password, role, is_verified, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.IsVerified, &u.CreatedAt)
	if err != nil {
		return User{}, mapPgErr(err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.q.QueryRow(ctx,
		`SELECT id, name, email, password, role, is_verified, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.IsVerified, &u.CreatedAt)
	if err != nil {
		return User{}, mapPgErr(err)
	}
	return u, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, j Job) (Job, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO jobs (id, owner_id, title, description, category, lga, budget, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		j.ID, j.OwnerID, j.Title, j.Description, j.Category, j.LGA, j.Budget, j.Status, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return Job{}, mapPgErr(err)
	}
	return j, nil
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	var assigned *string
	err := row.Scan(&j.ID, &j.OwnerID, &j.Title, &j.Description, &j.Category,
		&j.LGA, &j.Budget, &j.Status, &assigned, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Job{}, mapPgErr(err)
	}
	if assigned != nil {
		j.AssignedArtisanID = *assigned
	}
	return j, nil
}

const jobColumns = `id, owner_id, title, description, category, lga, budget, status, assigned_artisan_id, created_at, updated_at`

func (s *PostgresStore) GetJob(ctx context.Context, id string) (Job, error) {
	return scanJob(s.q.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (s *PostgresStore) ListJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	where := []string{}
	args := []any{}
	add := func(col, val string) {
		if val != "" {
			args = append(args, val)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("status", f.Status)
	add("category", f.Category)
	add("lga", f.LGA)
	add("owner_id", f.OwnerID)

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id string, upd JobUpdate) (Job, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	if upd.Status != nil {
		args = append(args, *upd.Status)
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if upd.AssignedArtisanID != nil {
		args = append(args, *upd.AssignedArtisanID)
		set = append(set, fmt.Sprintf("assigned_artisan_id = $%d", len(args)))
	}
	if upd.ClearAssigned {
		set = append(set, "assigned_artisan_id = NULL")
	}

	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $1`, strings.Join(set, ", "))
	if upd.ExpectStatus != nil {
		args = append(args, *upd.ExpectStatus)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	ct, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return Job{}, mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		// Distinguish a missing job from a lost compare-and-swap.
		if _, err := s.GetJob(ctx, id); err != nil {
			return Job{}, err
		}
		return Job{}, ErrConflict
	}
	return s.GetJob(ctx, id)
}

func (s *PostgresStore) CreateBid(ctx context.Context, b Bid) (Bid, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO bids (id, job_id, artisan_id, amount, proposal, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.JobID, b.ArtisanID, b.Amount, b.Proposal, b.CreatedAt,
	)
	if err != nil {
		return Bid{}, mapPgErr(err)
	}
	return b, nil
}

func (s *PostgresStore) GetBid(ctx context.Context, id string) (Bid, error) {
	var b Bid
	err := s.q.QueryRow(ctx,
		`SELECT id, job_id, artisan_id, amount, proposal, created_at FROM bids WHERE id = $1`, id,
	).Scan(&b.ID, &b.JobID, &b.ArtisanID, &b.Amount, &b.Proposal, &b.CreatedAt)
	if err != nil {
		return Bid{}, mapPgErr(err)
	}
	return b, nil
}

func (s *PostgresStore) listBidsWhere(ctx context.Context, col, val string) ([]Bid, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, job_id, artisan_id, amount, proposal, created_at
		 FROM bids WHERE `+col+` = $1 ORDER BY created_at DESC`, val)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.JobID, &b.ArtisanID, &b.Amount, &b.Proposal, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *PostgresStore) ListBids(ctx context.Context, jobID string) ([]Bid, error) {
	return s.listBidsWhere(ctx, "job_id", jobID)
}

func (s *PostgresStore) ListBidsByArtisan(ctx context.Context, artisanID string) ([]Bid, error) {
	return s.listBidsWhere(ctx, "artisan_id", artisanID)
}

func (s *PostgresStore) CreateEscrow(ctx context.Context, r EscrowRecord) (EscrowRecord, error) {
	// One live record per job: an existing row may only be replaced after a
	// refund reversal closed the previous run.
	ct, err := s.q.Exec(ctx,
		`INSERT INTO escrow_records (job_id, amount, status, type, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id) DO UPDATE
		 SET amount = EXCLUDED.amount, status = EXCLUDED.status,
		     type = EXCLUDED.type, created_at = EXCLUDED.created_at
		 WHERE escrow_records.status = 'REVERSED'`,
		r.JobID, r.Amount, r.Status, r.Type, r.Timestamp,
	)
	if err != nil {
		return EscrowRecord{}, mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return EscrowRecord{}, ErrConflict
	}
	return r, nil
}

func (s *PostgresStore) GetEscrow(ctx context.Context, jobID string) (EscrowRecord, error) {
	var r EscrowRecord
	err := s.q.QueryRow(ctx,
		`SELECT job_id, amount, status, type, created_at FROM escrow_records WHERE job_id = $1`, jobID,
	).Scan(&r.JobID, &r.Amount, &r.Status, &r.Type, &r.Timestamp)
	if err != nil {
		return EscrowRecord{}, mapPgErr(err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateEscrow(ctx context.Context, jobID string, upd EscrowUpdate) (EscrowRecord, error) {
	ct, err := s.q.Exec(ctx,
		`UPDATE escrow_records SET status = $2, type = $3 WHERE job_id = $1 AND status = 'PENDING'`,
		jobID, upd.Status, upd.Type,
	)
	if err != nil {
		return EscrowRecord{}, mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := s.GetEscrow(ctx, jobID); err != nil {
			return EscrowRecord{}, err
		}
		return EscrowRecord{}, ErrConflict
	}
	return s.GetEscrow(ctx, jobID)
}

func (s *PostgresStore) GetRating(ctx context.Context, artisanID string) (RatingState, error) {
	var r RatingState
	err := s.q.QueryRow(ctx,
		`SELECT artisan_id, rating, review_count FROM rating_states WHERE artisan_id = $1`, artisanID,
	).Scan(&r.ArtisanID, &r.Rating, &r.ReviewCount)
	if err != nil {
		return RatingState{}, mapPgErr(err)
	}
	return r, nil
}

func (s *PostgresStore) PutRating(ctx context.Context, r RatingState) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO rating_states (artisan_id, rating, review_count)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (artisan_id) DO UPDATE SET rating = EXCLUDED.rating, review_count = EXCLUDED.review_count`,
		r.ArtisanID, r.Rating, r.ReviewCount,
	)
	return mapPgErr(err)
}

func (s *PostgresStore) CreateDispute(ctx context.Context, d Dispute) (Dispute, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO disputes (id, job_id, filer_id, reason, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.JobID, d.FilerID, d.Reason, d.Status, d.CreatedAt,
	)
	if err != nil {
		return Dispute{}, mapPgErr(err)
	}
	return d, nil
}

func (s *PostgresStore) ResolveDispute(ctx context.Context, jobID, resolution string) error {
	ct, err := s.q.Exec(ctx,
		`UPDATE disputes SET status = 'resolved', resolution = $2, resolved_at = NOW()
		 WHERE job_id = $1 AND status = 'open'`,
		jobID, resolution,
	)
	if err != nil {
		return mapPgErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateReview(ctx context.Context, r Review) (Review, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO reviews (id, job_id, owner_id, artisan_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.JobID, r.OwnerID, r.ArtisanID, r.Rating, r.Comment, r.CreatedAt,
	)
	if err != nil {
		return Review{}, mapPgErr(err)
	}
	return r, nil
}

func (s *PostgresStore) GetJobReview(ctx context.Context, jobID string) (Review, error) {
	var r Review
	err := s.q.QueryRow(ctx,
		`SELECT id, job_id, owner_id, artisan_id, rating, comment, created_at
		 FROM reviews WHERE job_id = $1`, jobID,
	).Scan(&r.ID, &r.JobID, &r.OwnerID, &r.ArtisanID, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return Review{}, mapPgErr(err)
	}
	return r, nil
}

// Transact runs fn inside a single database transaction.
func (s *PostgresStore) Transact(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; reuse it.
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
