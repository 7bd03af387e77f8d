package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/jobvacancy/pkg/models"
)

const offerColumns = `o.id, o.title, o.location, o.description, o.owner_id, u.login, u.email, o.capacity, o.application_count, o.created, o.updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) CreateOffer(ctx context.Context, o *models.JobOffer) (int64, error) {
	if o == nil {
		return 0, fmt.Errorf("offer is nil")
	}
	if o.Capacity <= 0 {
		return 0, fmt.Errorf("offer capacity must be positive, got %d", o.Capacity)
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO job_offers (title, location, description, owner_id, capacity, application_count, created, updated) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`, o.Title, o.Location, o.Description, o.OwnerID, o.Capacity, ts, ts)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// FindByID returns the offer with its owner joined, or nil when absent.
func (r *SQLiteRepo) FindByID(ctx context.Context, id int64) (*models.JobOffer, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+offerColumns+` FROM job_offers o JOIN users u ON u.id = o.owner_id WHERE o.id = ?`, id)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return o, nil
}

func (r *SQLiteRepo) ListOffers(ctx context.Context, limit, offset int) ([]models.JobOffer, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+offerColumns+` FROM job_offers o JOIN users u ON u.id = o.owner_id ORDER BY o.created DESC, o.id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *o)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) CountOffers(ctx context.Context) (int64, error) {
	row := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM job_offers`)
	var cnt int64
	if err := row.Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func scanOffer(row rowScanner) (*models.JobOffer, error) {
	var o models.JobOffer
	var location, description sql.NullString
	if err := row.Scan(&o.ID, &o.Title, &location, &description, &o.OwnerID, &o.OwnerLogin, &o.OwnerEmail, &o.Capacity, &o.ApplicationCount, &o.Created, &o.Updated); err != nil {
		return nil, err
	}

	o.Location = location.String
	o.Description = description.String
	return &o, nil
}
