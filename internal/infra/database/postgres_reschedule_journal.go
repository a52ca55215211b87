// internal/infra/database/postgres_reschedule_journal.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"volume_guard_worker/internal/app"
)

// ErrJournalUnavailable is returned when the journal has no database behind it.
var ErrJournalUnavailable = errors.New("reschedule journal unavailable")

const schemaDDL = `CREATE TABLE IF NOT EXISTS rescheduled_invoices (
    invoice_id     TEXT        NOT NULL,
    account_id     TEXT        NOT NULL,
    delay_days     INTEGER     NOT NULL,
    new_instant    TIMESTAMPTZ NOT NULL,
    rescheduled_on DATE        NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT rescheduled_invoices_pk PRIMARY KEY (invoice_id, rescheduled_on)
)`

// PostgresRescheduleJournal records every applied reschedule. It is a
// reporting sink only; the invoice metadata tag stays the idempotency guard.
type PostgresRescheduleJournal struct {
	db        *sql.DB
	accountID string
	logger    *logrus.Entry
}

func NewPostgresRescheduleJournal(db *sql.DB, accountID string, logger *logrus.Entry) *PostgresRescheduleJournal {
	return &PostgresRescheduleJournal{
		db:        db,
		accountID: accountID,
		logger:    logger.WithField("component", "reschedule_journal"),
	}
}

// EnsureSchema creates the journal table when missing.
func (r *PostgresRescheduleJournal) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return ErrJournalUnavailable
	}
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("error creating rescheduled_invoices table: %w", err)
	}
	return nil
}

func (r *PostgresRescheduleJournal) Name() string { return "postgres_journal" }

// AfterReschedule implements app.PostRescheduleHook.
func (r *PostgresRescheduleJournal) AfterReschedule(ctx context.Context, rs app.Rescheduled) error {
	if r.db == nil {
		return ErrJournalUnavailable
	}
	on, err := time.Parse(time.DateOnly, rs.TaggedOn)
	if err != nil {
		return fmt.Errorf("invalid reschedule date %q: %w", rs.TaggedOn, err)
	}
	query := `INSERT INTO rescheduled_invoices (invoice_id, account_id, delay_days, new_instant, rescheduled_on)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT DO NOTHING`
	_, err = r.db.ExecContext(ctx, query,
		rs.Invoice.ID,
		r.accountID,
		rs.Assignment.DelayDays,
		time.Unix(rs.Assignment.NewInstant, 0).UTC(),
		on,
	)
	if err != nil {
		return fmt.Errorf("error journaling invoice %s: %w", rs.Invoice.ID, err)
	}
	r.logger.WithField("invoice_id", rs.Invoice.ID).Debug("Reschedule journaled")
	return nil
}

// CountOn returns how many invoices were rescheduled on the given local date (YYYY-MM-DD).
func (r *PostgresRescheduleJournal) CountOn(ctx context.Context, date string) (int, error) {
	if r.db == nil {
		return 0, ErrJournalUnavailable
	}
	on, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	query := `SELECT COUNT(*) FROM rescheduled_invoices WHERE account_id = $1 AND rescheduled_on = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, r.accountID, on).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting rescheduled invoices: %w", err)
	}
	return n, nil
}
