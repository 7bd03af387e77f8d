package submission_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garnizeh/jobvacancy/internal/identity"
	"github.com/garnizeh/jobvacancy/internal/submission"
	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository/mock"
)

const (
	applicantFullname = "THE APPLICANT"
	applicantEmail    = "APPLICANT@TEST.COM"
	validURL          = "http://www.micv.com/micv"
	invalidURL        = "www.%#&micv.com/micv"
	offerID           = int64(1)
)

var owner = &models.User{ID: 10, Login: "user", Email: "user@localhost"}

func setup(t *testing.T, capacity int) (*submission.Service, *mock.Mocks, *models.JobOffer) {
	t.Helper()
	m := mock.NewMocks()
	offer := m.Offers.Put(&models.JobOffer{ID: offerID, Title: "SAMPLE_TEXT", OwnerID: owner.ID, OwnerLogin: owner.Login, OwnerEmail: owner.Email, Capacity: capacity})
	svc := submission.NewService(m.Offers, m.Applications, m.Resolver, m.Notifier, nil)
	return svc, m, offer
}

func validRequest() submission.Request {
	return submission.Request{OfferID: offerID, Fullname: applicantFullname, Email: applicantEmail, URL: validURL}
}

func TestSubmit_SendsApplicationWithResolvedOffer(t *testing.T) {
	svc, m, offer := setup(t, 2)

	res, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if res.ApplicationCount != 1 || res.CapacityReached {
		t.Fatalf("unexpected result: %#v", res)
	}

	if len(m.Notifier.Applications) != 1 {
		t.Fatalf("expected 1 application notice got %d", len(m.Notifier.Applications))
	}
	call := m.Notifier.Applications[0]
	if call.Email != applicantEmail || call.URL != validURL {
		t.Fatalf("unexpected notice params: %#v", call)
	}
	if call.Offer != offer {
		t.Fatalf("notice must carry the resolved offer instance")
	}
	if len(m.Notifier.MaxCapacity) != 0 {
		t.Fatalf("expected no max capacity notice got %d", len(m.Notifier.MaxCapacity))
	}
	if m.Offers.FindCalls != 1 {
		t.Fatalf("offer must be resolved exactly once, got %d lookups", m.Offers.FindCalls)
	}
	if len(m.Applications.Stored) != 1 {
		t.Fatalf("expected 1 stored application got %d", len(m.Applications.Stored))
	}
	stored := m.Applications.Stored[0]
	if stored.OfferID != offerID || stored.Fullname != applicantFullname || stored.Email != applicantEmail || stored.URL != validURL {
		t.Fatalf("unexpected stored application: %#v", stored)
	}
}

func TestSubmit_MaxCapacityOnSecondOfTwo(t *testing.T) {
	svc, m, offer := setup(t, 2)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, validRequest()); err != nil {
		t.Fatalf("first Submit error: %v", err)
	}
	if len(m.Notifier.MaxCapacity) != 0 {
		t.Fatalf("first submission must not send max capacity notice")
	}

	m.Resolver.Actor = identity.Authenticated(&models.User{ID: 99, Login: "other"})
	res, err := svc.Submit(ctx, validRequest())
	if err != nil {
		t.Fatalf("second Submit error: %v", err)
	}
	if !res.CapacityReached {
		t.Fatalf("expected capacity reached on second submission")
	}

	if len(m.Notifier.Applications) != 2 {
		t.Fatalf("expected 2 application notices got %d", len(m.Notifier.Applications))
	}
	if len(m.Notifier.MaxCapacity) != 1 {
		t.Fatalf("expected 1 max capacity notice got %d", len(m.Notifier.MaxCapacity))
	}
	if m.Notifier.MaxCapacity[0] != offer {
		t.Fatalf("max capacity notice must carry the resolved offer instance")
	}
	if offer.ApplicationCount != 2 {
		t.Fatalf("expected offer count 2 got %d", offer.ApplicationCount)
	}
}

func TestSubmit_NoMaxCapacityBelowCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 5, 10} {
		svc, m, _ := setup(t, capacity)
		ctx := context.Background()

		for i := 1; i < capacity; i++ {
			if _, err := svc.Submit(ctx, validRequest()); err != nil {
				t.Fatalf("capacity %d submission %d: %v", capacity, i, err)
			}
		}
		if got := len(m.Notifier.MaxCapacity); got != 0 {
			t.Fatalf("capacity %d: expected 0 max capacity notices below capacity got %d", capacity, got)
		}
		if got := len(m.Notifier.Applications); got != capacity-1 {
			t.Fatalf("capacity %d: expected %d application notices got %d", capacity, capacity-1, got)
		}

		if _, err := svc.Submit(ctx, validRequest()); err != nil {
			t.Fatalf("capacity %d final submission: %v", capacity, err)
		}
		if got := len(m.Notifier.MaxCapacity); got != 1 {
			t.Fatalf("capacity %d: expected 1 max capacity notice got %d", capacity, got)
		}
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(m *mock.Mocks, req *submission.Request)
		wantMsg string
	}{
		{
			name: "InvalidURL",
			prepare: func(m *mock.Mocks, req *submission.Request) {
				req.URL = invalidURL
			},
			wantMsg: submission.MsgInvalidURL,
		},
		{
			name: "RelativeURL",
			prepare: func(m *mock.Mocks, req *submission.Request) {
				req.URL = "/micv"
			},
			wantMsg: submission.MsgInvalidURL,
		},
		{
			name: "EmptyURL",
			prepare: func(m *mock.Mocks, req *submission.Request) {
				req.URL = ""
			},
			wantMsg: submission.MsgInvalidURL,
		},
		{
			name: "PublishedByYourself",
			prepare: func(m *mock.Mocks, req *submission.Request) {
				m.Resolver.Actor = identity.Authenticated(owner)
			},
			wantMsg: submission.MsgSelfApply,
		},
		{
			name: "OfferFull",
			prepare: func(m *mock.Mocks, req *submission.Request) {
				m.Applications.Counts[offerID] = 2
			},
			wantMsg: submission.MsgCapacityFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m, _ := setup(t, 2)
			req := validRequest()
			tt.prepare(m, &req)

			_, err := svc.Submit(context.Background(), req)
			var verr *submission.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected message containing %q got %q", tt.wantMsg, err.Error())
			}
			if n := m.Notifier.Total(); n != 0 {
				t.Fatalf("rejected submission sent %d notifications", n)
			}
		})
	}
}

func TestSubmit_RejectionDoesNotPersist(t *testing.T) {
	svc, m, offer := setup(t, 2)
	req := validRequest()
	req.URL = invalidURL

	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatalf("expected error")
	}
	if len(m.Applications.Stored) != 0 {
		t.Fatalf("rejected submission must not be persisted")
	}
	if offer.ApplicationCount != 0 {
		t.Fatalf("rejected submission must not change the count")
	}
}

func TestSubmit_OfferNotFound(t *testing.T) {
	svc, m, _ := setup(t, 2)
	req := validRequest()
	req.OfferID = 404

	_, err := svc.Submit(context.Background(), req)
	var nf *submission.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError got %v", err)
	}
	if nf.ID != 404 {
		t.Fatalf("unexpected id in error: %d", nf.ID)
	}
	if m.Notifier.Total() != 0 {
		t.Fatalf("missing offer must not notify")
	}
}

func TestSubmit_CollaboratorErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(m *mock.Mocks)
	}{
		{name: "FindOffer", prepare: func(m *mock.Mocks) { m.Offers.FindErr = errors.New("db down") }},
		{name: "ResolveUser", prepare: func(m *mock.Mocks) { m.Resolver.Err = errors.New("db down") }},
		{name: "Record", prepare: func(m *mock.Mocks) { m.Applications.RecordErr = errors.New("disk full") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m, _ := setup(t, 2)
			tt.prepare(m)

			_, err := svc.Submit(context.Background(), validRequest())
			if err == nil {
				t.Fatalf("expected error")
			}
			var verr *submission.ValidationError
			if errors.As(err, &verr) {
				t.Fatalf("infrastructure failure must not be a ValidationError: %v", err)
			}
			if m.Notifier.Total() != 0 {
				t.Fatalf("failed submission must not notify")
			}
		})
	}
}

func TestValidURL(t *testing.T) {
	cases := map[string]bool{
		"http://www.micv.com/micv":       true,
		"https://cv.example.org/a?b=c":   true,
		"ftp://files.example.com/cv.pdf": true,
		"www.%#&micv.com/micv":           false,
		"www.micv.com/micv":              false,
		"http://":                        false,
		"mailto:someone@example.com":     false,
		"":                               false,
	}
	for raw, want := range cases {
		if got := submission.ValidURL(raw); got != want {
			t.Errorf("ValidURL(%q) = %v want %v", raw, got, want)
		}
	}
}
