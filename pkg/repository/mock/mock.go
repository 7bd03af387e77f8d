package mock

import (
	"context"
	"sync"

	"github.com/garnizeh/jobvacancy/internal/identity"
	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Users        *mockUserRepo
	Offers       *mockOfferRepo
	Applications *mockApplicationRepo
	Notifier     *Notifier
	Resolver     *mockResolver
}

func NewMocks() *Mocks {
	offers := &mockOfferRepo{Offers: map[int64]*models.JobOffer{}}
	return &Mocks{
		Users:        &mockUserRepo{},
		Offers:       offers,
		Applications: &mockApplicationRepo{offers: offers, Counts: map[int64]int{}},
		Notifier:     &Notifier{},
		Resolver:     &mockResolver{},
	}
}

type mockUserRepo struct {
	Stored    []*models.User
	CreateErr error
	GetErr    error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	id := int64(len(m.Stored) + 1)
	m.Stored = append(m.Stored, &models.User{ID: id, Login: u.Login, Email: u.Email, PasswordHash: u.PasswordHash})
	return id, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Stored {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Stored {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, nil
}

// mockOfferRepo hands out the stored pointer itself, so callers observe the
// same instance on every lookup.
type mockOfferRepo struct {
	Offers    map[int64]*models.JobOffer
	FindErr   error
	CreateErr error
	FindCalls int
}

func (m *mockOfferRepo) Put(o *models.JobOffer) *models.JobOffer {
	m.Offers[o.ID] = o
	return o
}

func (m *mockOfferRepo) CreateOffer(ctx context.Context, o *models.JobOffer) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	id := int64(len(m.Offers) + 1)
	cp := *o
	cp.ID = id
	m.Offers[id] = &cp
	return id, nil
}

func (m *mockOfferRepo) FindByID(ctx context.Context, id int64) (*models.JobOffer, error) {
	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.Offers[id], nil
}

func (m *mockOfferRepo) ListOffers(ctx context.Context, limit, offset int) ([]models.JobOffer, error) {
	var out []models.JobOffer
	for id := int64(1); id <= int64(len(m.Offers)); id++ {
		if o, ok := m.Offers[id]; ok {
			out = append(out, *o)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOfferRepo) CountOffers(ctx context.Context) (int64, error) {
	return int64(len(m.Offers)), nil
}

// mockApplicationRepo counts applications per offer independently of the
// offer objects and enforces capacity like the SQLite implementation.
type mockApplicationRepo struct {
	offers    *mockOfferRepo
	Counts    map[int64]int
	Stored    []models.JobApplication
	RecordErr error
}

func (m *mockApplicationRepo) RecordApplication(ctx context.Context, a *models.JobApplication) (int, error) {
	if m.RecordErr != nil {
		return 0, m.RecordErr
	}
	if o, ok := m.offers.Offers[a.OfferID]; ok && m.Counts[a.OfferID] >= o.Capacity {
		return 0, repository.ErrOfferFull
	}
	m.Counts[a.OfferID]++
	a.ID = int64(len(m.Stored) + 1)
	m.Stored = append(m.Stored, *a)
	return m.Counts[a.OfferID], nil
}

func (m *mockApplicationRepo) ListByOffer(ctx context.Context, offerID int64) ([]models.JobApplication, error) {
	var out []models.JobApplication
	for _, a := range m.Stored {
		if a.OfferID == offerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockResolver struct {
	Actor identity.Actor
	Err   error
}

func (m *mockResolver) CurrentUser(ctx context.Context) (identity.Actor, error) {
	return m.Actor, m.Err
}

// ApplicationCall records one SendApplication invocation.
type ApplicationCall struct {
	Email string
	URL   string
	Offer *models.JobOffer
	// Count is the offer's application count at the time of the call.
	Count int
}

// Notifier records notification calls.
type Notifier struct {
	mu           sync.Mutex
	Applications []ApplicationCall
	MaxCapacity  []*models.JobOffer
}

func (n *Notifier) SendApplication(ctx context.Context, email, cvURL string, offer *models.JobOffer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Applications = append(n.Applications, ApplicationCall{Email: email, URL: cvURL, Offer: offer, Count: offer.ApplicationCount})
}

func (n *Notifier) SendEmailForMaxCapacity(ctx context.Context, offer *models.JobOffer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.MaxCapacity = append(n.MaxCapacity, offer)
}

// Total returns the number of notifications of either kind.
func (n *Notifier) Total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Applications) + len(n.MaxCapacity)
}

// Snapshot returns copies of the recorded calls; safe to use while another
// goroutine is still notifying.
func (n *Notifier) Snapshot() ([]ApplicationCall, []*models.JobOffer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	apps := append([]ApplicationCall(nil), n.Applications...)
	maxCap := append([]*models.JobOffer(nil), n.MaxCapacity...)
	return apps, maxCap
}
