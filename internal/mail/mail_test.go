package mail_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/jobvacancy/db"
	"github.com/garnizeh/jobvacancy/internal/db"
	"github.com/garnizeh/jobvacancy/internal/jobs"
	"github.com/garnizeh/jobvacancy/internal/mail"
	"github.com/garnizeh/jobvacancy/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleOffer() *models.JobOffer {
	return &models.JobOffer{ID: 1, Title: "SAMPLE_TEXT", OwnerID: 3, OwnerLogin: "user", OwnerEmail: "user@localhost", Capacity: 2, ApplicationCount: 1}
}

type fakeTransport struct {
	sent []mail.Message
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type queued struct {
	typ         string
	payload     []byte
	maxAttempts int
}

type fakeQueue struct {
	jobs []queued
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	b, _ := json.Marshal(payload)
	f.jobs = append(f.jobs, queued{typ: typ, payload: b, maxAttempts: maxAttempts})
	return int64(len(f.jobs)), nil
}

func TestRenderer(t *testing.T) {
	r, err := mail.NewRenderer("https://jobs.example.com/")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	offer := map[string]any{"id": 1, "title": "Go Dev", "owner_login": "user", "capacity": 2, "application_count": 1}
	subject, body, err := r.Render(mail.TemplateApplication, map[string]any{
		"offer":           offer,
		"applicant_email": "APPLICANT@TEST.COM",
		"cv_url":          "http://www.micv.com/micv",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "New application for Go Dev" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Hello user", "APPLICANT@TEST.COM", "http://www.micv.com/micv", "1 of 2", "https://jobs.example.com/v1/offers/1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}

	subject, body, err = r.Render(mail.TemplateMaxCapacity, map[string]any{"offer": offer})
	if err != nil {
		t.Fatalf("Render max capacity: %v", err)
	}
	if !strings.Contains(subject, "maximum capacity") || !strings.Contains(body, "2 applications") {
		t.Fatalf("unexpected max capacity mail: %q / %q", subject, body)
	}

	if _, _, err := r.Render("nope", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestRenderer_NoBaseURL(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	_, body, err := r.Render(mail.TemplateMaxCapacity, map[string]any{"offer": map[string]any{"id": 1, "title": "x", "capacity": 1}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(body, "Review the offer") {
		t.Fatalf("link must be omitted without base url:\n%s", body)
	}
	if !strings.Contains(body, "Hello there") {
		t.Fatalf("expected default greeting:\n%s", body)
	}
}

func TestNotifier_QueuesSnapshots(t *testing.T) {
	q := &fakeQueue{}
	n := mail.NewNotifier(q, 3, nil)
	offer := sampleOffer()

	n.SendApplication(context.Background(), "APPLICANT@TEST.COM", "http://www.micv.com/micv", offer)
	n.SendEmailForMaxCapacity(context.Background(), offer)

	if len(q.jobs) != 2 {
		t.Fatalf("expected 2 queued jobs got %d", len(q.jobs))
	}
	if q.jobs[0].typ != mail.JobApplication || q.jobs[1].typ != mail.JobMaxCapacity {
		t.Fatalf("unexpected job types: %q %q", q.jobs[0].typ, q.jobs[1].typ)
	}
	if q.jobs[0].maxAttempts != 3 {
		t.Fatalf("expected max attempts 3 got %d", q.jobs[0].maxAttempts)
	}

	var p mail.ApplicationPayload
	if err := json.Unmarshal(q.jobs[0].payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.ApplicantEmail != "APPLICANT@TEST.COM" || p.CVURL != "http://www.micv.com/micv" {
		t.Fatalf("unexpected payload: %#v", p)
	}
	if p.Offer.ID != 1 || p.Offer.OwnerEmail != "user@localhost" || p.Offer.ApplicationCount != 1 {
		t.Fatalf("unexpected offer snapshot: %#v", p.Offer)
	}
}

func TestNotifier_QueueErrorIsSwallowed(t *testing.T) {
	q := &fakeQueue{err: errors.New("database is locked")}
	n := mail.NewNotifier(q, 0, slog.Default())

	// must not panic or block
	n.SendApplication(context.Background(), "a@test.com", "http://x.test", sampleOffer())
	n.SendEmailForMaxCapacity(context.Background(), sampleOffer())
}

func TestNotifier_CanceledContextStillQueues(t *testing.T) {
	q := &fakeQueue{}
	n := mail.NewNotifier(q, 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.SendApplication(ctx, "a@test.com", "http://x.test", sampleOffer())
	if len(q.jobs) != 1 {
		t.Fatalf("expected job queued despite canceled request context")
	}
}

func TestHandlers(t *testing.T) {
	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	tests := []struct {
		name      string
		typ       string
		payload   any
		transport *fakeTransport
		wantErr   bool
		permanent bool
		wantSent  int
	}{
		{
			name:      "Application",
			typ:       mail.JobApplication,
			payload:   mail.ApplicationPayload{Offer: mail.OfferSnapshot{ID: 1, Title: "Go Dev", OwnerEmail: "owner@test.com", Capacity: 2, ApplicationCount: 1}, ApplicantEmail: "a@test.com", CVURL: "http://cv.test"},
			transport: &fakeTransport{},
			wantSent:  1,
		},
		{
			name:      "MaxCapacity",
			typ:       mail.JobMaxCapacity,
			payload:   mail.MaxCapacityPayload{Offer: mail.OfferSnapshot{ID: 1, Title: "Go Dev", OwnerEmail: "owner@test.com", Capacity: 2, ApplicationCount: 2}},
			transport: &fakeTransport{},
			wantSent:  1,
		},
		{
			name:      "NoOwnerEmail",
			typ:       mail.JobMaxCapacity,
			payload:   mail.MaxCapacityPayload{Offer: mail.OfferSnapshot{ID: 1, Title: "Go Dev", Capacity: 2}},
			transport: &fakeTransport{},
			wantErr:   true,
			permanent: true,
		},
		{
			name:      "BadPayload",
			typ:       mail.JobApplication,
			payload:   "not an object",
			transport: &fakeTransport{},
			wantErr:   true,
			permanent: true,
		},
		{
			name:      "TransportError",
			typ:       mail.JobApplication,
			payload:   mail.ApplicationPayload{Offer: mail.OfferSnapshot{ID: 1, Title: "Go Dev", OwnerEmail: "owner@test.com", Capacity: 2}},
			transport: &fakeTransport{err: errors.New("throttled")},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := mail.Handlers(r, tt.transport, "noreply@jobvacancy.local")[tt.typ]
			b, _ := json.Marshal(tt.payload)
			err := h(context.Background(), &jobs.Job{Type: tt.typ, Payload: b})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v wantErr %v", err, tt.wantErr)
			}
			if err != nil && errors.Is(err, jobs.ErrPermanent) != tt.permanent {
				t.Fatalf("permanent = %v want %v (%v)", errors.Is(err, jobs.ErrPermanent), tt.permanent, err)
			}
			if len(tt.transport.sent) != tt.wantSent {
				t.Fatalf("expected %d sent got %d", tt.wantSent, len(tt.transport.sent))
			}
			if tt.wantSent > 0 {
				msg := tt.transport.sent[0]
				if msg.To != "owner@test.com" || msg.From != "noreply@jobvacancy.local" {
					t.Fatalf("unexpected addressing: %#v", msg)
				}
			}
		})
	}
}

func TestNotifierThroughWorkerPool(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()
	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r, err := mail.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	transport := mail.NewLogTransport(slog.Default())
	pool := jobs.NewWorkerPool(jobs.NewRepository(d), mail.Handlers(r, transport, "noreply@test"), nil, 1, jobs.WithPollInterval(20*time.Millisecond))
	pool.Start(ctx)
	defer pool.Stop()

	n := mail.NewNotifier(pool, 3, nil)
	offer := sampleOffer()
	offer.ApplicationCount = 2
	n.SendApplication(ctx, "APPLICANT@TEST.COM", "http://www.micv.com/micv", offer)
	n.SendEmailForMaxCapacity(ctx, offer)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(transport.Sent()) == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	sent := transport.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 delivered messages got %d", len(sent))
	}
	subjects := sent[0].Subject + "|" + sent[1].Subject
	if !strings.Contains(subjects, "New application for SAMPLE_TEXT") || !strings.Contains(subjects, "maximum capacity") {
		t.Fatalf("unexpected subjects: %s", subjects)
	}
}

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"not-an-email":         "***@***",
	}
	for in, want := range cases {
		if got := mail.RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q want %q", in, got, want)
		}
	}
}
