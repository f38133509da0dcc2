package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the Postgres pool from DB_* environment variables. The
// returned pool is handed to the catalog store; nothing holds it as a
// package global.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Println("Connected to Postgres successfully")
	return pool, nil
}

// EnsureSchema creates the tables the engine needs. All statements are
// idempotent so startup is safe against an existing database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ensureUsersTable(ctx, pool)
	ensureJobsTables(ctx, pool)
	ensureEscrowTable(ctx, pool)
	ensureRatingTable(ctx, pool)
	ensureDisputesTable(ctx, pool)
	ensureReviewsTable(ctx, pool)
	return nil
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('OWNER','ARTISAN','ADMIN')),
            is_verified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to create users table: %v", err)
	}
}

func ensureJobsTables(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS jobs (
            id UUID PRIMARY KEY,
            owner_id UUID NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            category TEXT NOT NULL,
            lga TEXT NOT NULL,
            budget BIGINT NOT NULL CHECK (budget > 0),
            status TEXT NOT NULL DEFAULT 'OPEN'
                CHECK (status IN ('OPEN','IN_PROGRESS','COMPLETED','DISPUTED')),
            assigned_artisan_id UUID NULL REFERENCES users(id),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
        CREATE INDEX IF NOT EXISTS idx_jobs_lga ON jobs(lga);
        CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner_id);
    `)
	if err != nil {
		log.Printf("failed to create jobs table: %v", err)
	}

	_, err = pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS bids (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
            artisan_id UUID NOT NULL REFERENCES users(id),
            amount BIGINT NOT NULL CHECK (amount > 0),
            proposal TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_bids_job ON bids(job_id);
        CREATE INDEX IF NOT EXISTS idx_bids_artisan ON bids(artisan_id);
    `)
	if err != nil {
		log.Printf("failed to create bids table: %v", err)
	}
}

func ensureEscrowTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS escrow_records (
            job_id UUID PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL CHECK (status IN ('PENDING','SUCCESS','REVERSED')),
            type TEXT NOT NULL CHECK (type IN ('PAYMENT','ESCROW_RELEASE','REFUND')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to create escrow_records table: %v", err)
	}
}

func ensureRatingTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS rating_states (
            artisan_id UUID PRIMARY KEY REFERENCES users(id),
            rating DOUBLE PRECISION NOT NULL DEFAULT 5.0,
            review_count INTEGER NOT NULL DEFAULT 0
        );
    `)
	if err != nil {
		log.Printf("failed to create rating_states table: %v", err)
	}
}

func ensureDisputesTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS disputes (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
            filer_id UUID NOT NULL REFERENCES users(id),
            reason TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','resolved')),
            resolution TEXT NULL CHECK (resolution IN ('RELEASE_TO_ARTISAN','REFUND_TO_OWNER')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            resolved_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_disputes_job ON disputes(job_id);
        CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);
    `)
	if err != nil {
		log.Printf("failed to create disputes table: %v", err)
	}
}

func ensureReviewsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reviews (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
            owner_id UUID NOT NULL REFERENCES users(id),
            artisan_id UUID NOT NULL REFERENCES users(id),
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	if err != nil {
		log.Printf("failed to create reviews table: %v", err)
	}
}
