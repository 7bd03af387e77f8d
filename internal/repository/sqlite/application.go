package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// RecordApplication inserts a and bumps the offer's application_count in the
// same transaction. The increment is conditional on remaining capacity, so
// concurrent submissions cannot push the count past capacity; the loser gets
// repository.ErrOfferFull and nothing is written.
func (r *SQLiteRepo) RecordApplication(ctx context.Context, a *models.JobApplication) (int, error) {
	if a == nil {
		return 0, fmt.Errorf("application is nil")
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	var count int
	row := tx.QueryRowContext(ctx, `UPDATE job_offers SET application_count = application_count + 1, updated = ? WHERE id = ? AND application_count < capacity RETURNING application_count`, ts, a.OfferID)
	if err := row.Scan(&count); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("increment application count: %w", err)
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM job_offers WHERE id = ?`, a.OfferID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check offer: %w", err)
		}
		if exists == 0 {
			return 0, fmt.Errorf("offer %d not found", a.OfferID)
		}

		return 0, repository.ErrOfferFull
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO job_applications (offer_id, fullname, email, url, created) VALUES (?, ?, ?, ?, ?)`, a.OfferID, a.Fullname, a.Email, a.URL, ts)
	if err != nil {
		return 0, fmt.Errorf("insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	a.ID = id
	a.Created = ts
	r.logger.Debug("application recorded", slog.Int64("offer_id", a.OfferID), slog.Int64("application_id", id), slog.Int("count", count))

	return count, nil
}

func (r *SQLiteRepo) ListByOffer(ctx context.Context, offerID int64) ([]models.JobApplication, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, offer_id, fullname, email, url, created FROM job_applications WHERE offer_id = ? ORDER BY id`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobApplication
	for rows.Next() {
		var a models.JobApplication
		if err := rows.Scan(&a.ID, &a.OfferID, &a.Fullname, &a.Email, &a.URL, &a.Created); err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}
