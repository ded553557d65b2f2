// internal/store/submission.go
//
// Submission log.
//
// Context
// -------
// Each booking the dispatcher handles leaves one row behind, whether or not
// both emails went out.  Staff use the log to chase leads whose
// notification failed.
//
//	booking_submission (id PK, submitted_at, source, name, email, phone,
//	                    address, services, admin_sent, customer_sent, error)
//
// The log is optional: with no DSN configured the dispatcher runs without a
// Repo and nothing is written.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the log table.  Applied at startup when a DSN is set.
const Schema = `CREATE TABLE IF NOT EXISTS booking_submission (
    id            CHAR(36)     NOT NULL PRIMARY KEY,
    submitted_at  DATETIME(3)  NOT NULL,
    source        VARCHAR(16)  NOT NULL,
    name          VARCHAR(255) NOT NULL,
    email         VARCHAR(255) NOT NULL,
    phone         VARCHAR(32)  NOT NULL,
    address       VARCHAR(512) NOT NULL,
    services      VARCHAR(512) NOT NULL,
    admin_sent    BOOLEAN      NOT NULL,
    customer_sent BOOLEAN      NOT NULL,
    error         VARCHAR(512) NOT NULL DEFAULT '',
    KEY idx_submitted_at (submitted_at)
)`

// Submission is one logged booking.
type Submission struct {
	ID           string    `db:"id"`
	SubmittedAt  time.Time `db:"submitted_at"`
	Source       string    `db:"source"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	Services     string    `db:"services"`
	AdminSent    bool      `db:"admin_sent"`
	CustomerSent bool      `db:"customer_sent"`
	Error        string    `db:"error"`
}

// Repo reads and writes booking_submission.
type Repo struct {
	db *sqlx.DB
}

// NewRepo wraps an open pool.
func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// Migrate applies Schema.
func (r *Repo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// Record inserts one row.
func (r *Repo) Record(ctx context.Context, s Submission) error {
	const q = `INSERT INTO booking_submission
	             (id, submitted_at, source, name, email, phone, address,
	              services, admin_sent, customer_sent, error)
	           VALUES
	             (:id, :submitted_at, :source, :name, :email, :phone, :address,
	              :services, :admin_sent, :customer_sent, :error)`
	_, err := r.db.NamedExecContext(ctx, q, s)
	return err
}

// Recent returns the newest rows first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, submitted_at, source, name, email, phone, address,
	                  services, admin_sent, customer_sent, error
	             FROM booking_submission
	            ORDER BY submitted_at DESC
	            LIMIT ?`
	out := []Submission{}
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// Undelivered returns rows where at least one email failed.
func (r *Repo) Undelivered(ctx context.Context, since time.Time) ([]Submission, error) {
	const q = `SELECT id, submitted_at, source, name, email, phone, address,
	                  services, admin_sent, customer_sent, error
	             FROM booking_submission
	            WHERE submitted_at >= ? AND (admin_sent = FALSE OR customer_sent = FALSE)
	            ORDER BY submitted_at DESC`
	out := []Submission{}
	if err := r.db.SelectContext(ctx, &out, q, since); err != nil {
		return nil, err
	}
	return out, nil
}
