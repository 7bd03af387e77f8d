package mail

import (
	"context"
	"log/slog"

	"github.com/garnizeh/jobvacancy/pkg/models"
)

// Job types handled by Handlers.
const (
	JobApplication = "mail.application"
	JobMaxCapacity = "mail.max_capacity"
)

// OfferSnapshot is the offer state captured when a notification is queued.
type OfferSnapshot struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	OwnerLogin       string `json:"owner_login"`
	OwnerEmail       string `json:"owner_email"`
	Capacity         int    `json:"capacity"`
	ApplicationCount int    `json:"application_count"`
}

func snapshot(o *models.JobOffer) OfferSnapshot {
	return OfferSnapshot{
		ID:               o.ID,
		Title:            o.Title,
		OwnerLogin:       o.OwnerLogin,
		OwnerEmail:       o.OwnerEmail,
		Capacity:         o.Capacity,
		ApplicationCount: o.ApplicationCount,
	}
}

func (s OfferSnapshot) bindings() map[string]any {
	return map[string]any{
		"id":                s.ID,
		"title":             s.Title,
		"owner_login":       s.OwnerLogin,
		"capacity":          s.Capacity,
		"application_count": s.ApplicationCount,
	}
}

type ApplicationPayload struct {
	Offer          OfferSnapshot `json:"offer"`
	ApplicantEmail string        `json:"applicant_email"`
	CVURL          string        `json:"cv_url"`
}

type MaxCapacityPayload struct {
	Offer OfferSnapshot `json:"offer"`
}

// Enqueuer is satisfied by *jobs.WorkerPool.
type Enqueuer interface {
	Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error)
}

// Notifier queues notification jobs. Queue failures are logged and dropped;
// they never reach the caller.
type Notifier struct {
	queue       Enqueuer
	maxAttempts int
	logger      *slog.Logger
}

func NewNotifier(queue Enqueuer, maxAttempts int, logger *slog.Logger) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{queue: queue, maxAttempts: maxAttempts, logger: logger}
}

func (n *Notifier) SendApplication(ctx context.Context, email, cvURL string, offer *models.JobOffer) {
	p := ApplicationPayload{Offer: snapshot(offer), ApplicantEmail: email, CVURL: cvURL}
	n.enqueue(ctx, JobApplication, p, 50, offer.ID)
}

func (n *Notifier) SendEmailForMaxCapacity(ctx context.Context, offer *models.JobOffer) {
	n.enqueue(ctx, JobMaxCapacity, MaxCapacityPayload{Offer: snapshot(offer)}, 10, offer.ID)
}

func (n *Notifier) enqueue(ctx context.Context, typ string, payload any, priority int, offerID int64) {
	// the application is already stored; a client disconnect must not drop its notice
	ctx = context.WithoutCancel(ctx)
	id, err := n.queue.Enqueue(ctx, typ, payload, priority, n.maxAttempts)
	if err != nil {
		n.logger.Error("enqueue notification", slog.String("type", typ), slog.Int64("offer_id", offerID), slog.Any("err", err))
		return
	}
	n.logger.Debug("notification queued", slog.String("type", typ), slog.Int64("offer_id", offerID), slog.Int64("job_id", id))
}
