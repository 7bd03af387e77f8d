// Package submission decides whether a job application is accepted and which
// notifications it triggers.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/garnizeh/jobvacancy/internal/identity"
	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// JobOfferStore looks up offers. FindByID returns nil, nil when absent.
type JobOfferStore interface {
	FindByID(ctx context.Context, id int64) (*models.JobOffer, error)
}

// ApplicationStore persists an application and returns the offer's new
// application count, or repository.ErrOfferFull.
type ApplicationStore interface {
	RecordApplication(ctx context.Context, a *models.JobApplication) (int, error)
}

type CurrentUserResolver interface {
	CurrentUser(ctx context.Context) (identity.Actor, error)
}

// NotificationSender is fire-and-forget: delivery failures are its own
// concern and never reach the submitter.
type NotificationSender interface {
	SendApplication(ctx context.Context, email, cvURL string, offer *models.JobOffer)
	SendEmailForMaxCapacity(ctx context.Context, offer *models.JobOffer)
}

type Request struct {
	OfferID  int64
	Fullname string
	Email    string
	URL      string
}

type Result struct {
	ApplicationID    int64
	ApplicationCount int
	CapacityReached  bool
}

type Service struct {
	offers   JobOfferStore
	apps     ApplicationStore
	users    CurrentUserResolver
	notifier NotificationSender
	logger   *slog.Logger
}

func NewService(offers JobOfferStore, apps ApplicationStore, users CurrentUserResolver, notifier NotificationSender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{offers: offers, apps: apps, users: users, notifier: notifier, logger: logger}
}

// Submit validates and records req. On success the application notice is
// sent with the offer resolved here, followed by the max-capacity notice when
// this application fills the offer. Any error means nothing was persisted and
// nothing was sent.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	offer, err := s.offers.FindByID(ctx, req.OfferID)
	if err != nil {
		return nil, fmt.Errorf("find offer %d: %w", req.OfferID, err)
	}
	if offer == nil {
		return nil, &NotFoundError{Entity: "job offer", ID: req.OfferID}
	}

	actor, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}

	if !ValidURL(req.URL) {
		return nil, &ValidationError{Message: MsgInvalidURL}
	}
	if actor.Owns(offer.OwnerID) {
		return nil, &ValidationError{Message: MsgSelfApply}
	}

	app := &models.JobApplication{
		OfferID:  offer.ID,
		Fullname: req.Fullname,
		Email:    req.Email,
		URL:      req.URL,
	}
	count, err := s.apps.RecordApplication(ctx, app)
	if err != nil {
		if errors.Is(err, repository.ErrOfferFull) {
			return nil, &ValidationError{Message: MsgCapacityFull}
		}
		return nil, fmt.Errorf("record application: %w", err)
	}
	offer.ApplicationCount = count

	s.logger.Info("application accepted",
		slog.Int64("offer_id", offer.ID),
		slog.Int64("application_id", app.ID),
		slog.Int("count", count),
		slog.Int("capacity", offer.Capacity),
		slog.String("actor", actor.String()),
	)

	s.notifier.SendApplication(ctx, req.Email, req.URL, offer)

	reached := count == offer.Capacity
	if reached {
		s.notifier.SendEmailForMaxCapacity(ctx, offer)
	}

	return &Result{ApplicationID: app.ID, ApplicationCount: count, CapacityReached: reached}, nil
}

// ValidURL reports whether raw parses as an absolute URL with a host.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
