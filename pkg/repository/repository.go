package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/jobvacancy/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// ErrOfferFull is returned by ApplicationRepo.RecordApplication when the offer
// already holds as many applications as its capacity allows.
var ErrOfferFull = errors.New("offer has reached its maximum capacity")

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}

type JobOfferRepo interface {
	CreateOffer(ctx context.Context, o *models.JobOffer) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.JobOffer, error)
	ListOffers(ctx context.Context, limit, offset int) ([]models.JobOffer, error)
	CountOffers(ctx context.Context) (int64, error)
}

type ApplicationRepo interface {
	// RecordApplication stores a and increments the offer's application
	// count in one transaction, returning the new count.
	RecordApplication(ctx context.Context, a *models.JobApplication) (int, error)
	ListByOffer(ctx context.Context, offerID int64) ([]models.JobApplication, error)
}

// Repository groups the repositories used by the HTTP layer.
type Repository struct {
	Users        UserRepo
	Offers       JobOfferRepo
	Applications ApplicationRepo
}
