package sqlite

import (
	"io"
	"time"

	"log/slog"

	"github.com/garnizeh/jobvacancy/internal/db"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.UserRepo = (*SQLiteRepo)(nil)
var _ repository.JobOfferRepo = (*SQLiteRepo)(nil)
var _ repository.ApplicationRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

// Repository returns r wired into every slot of repository.Repository.
func (r *SQLiteRepo) Repository() *repository.Repository {
	return &repository.Repository{Users: r, Offers: r, Applications: r}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
