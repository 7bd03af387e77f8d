package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garnizeh/jobvacancy/internal/jobs"
)

// Handlers returns the job handlers that render and deliver queued
// notifications. Both notices go to the offer owner.
func Handlers(r *Renderer, t Transport, from string) map[string]jobs.Handler {
	return map[string]jobs.Handler{
		JobApplication: func(ctx context.Context, j *jobs.Job) error {
			var p ApplicationPayload
			if err := json.Unmarshal(j.Payload, &p); err != nil {
				return fmt.Errorf("decode %s payload: %v: %w", JobApplication, err, jobs.ErrPermanent)
			}
			return deliver(ctx, r, t, from, TemplateApplication, p.Offer, map[string]any{
				"offer":           p.Offer.bindings(),
				"applicant_email": p.ApplicantEmail,
				"cv_url":          p.CVURL,
			})
		},
		JobMaxCapacity: func(ctx context.Context, j *jobs.Job) error {
			var p MaxCapacityPayload
			if err := json.Unmarshal(j.Payload, &p); err != nil {
				return fmt.Errorf("decode %s payload: %v: %w", JobMaxCapacity, err, jobs.ErrPermanent)
			}
			return deliver(ctx, r, t, from, TemplateMaxCapacity, p.Offer, map[string]any{
				"offer": p.Offer.bindings(),
			})
		},
	}
}

func deliver(ctx context.Context, r *Renderer, t Transport, from, tpl string, offer OfferSnapshot, bindings map[string]any) error {
	if offer.OwnerEmail == "" {
		return fmt.Errorf("offer %d has no owner email: %w", offer.ID, jobs.ErrPermanent)
	}

	subject, body, err := r.Render(tpl, bindings)
	if err != nil {
		return fmt.Errorf("%v: %w", err, jobs.ErrPermanent)
	}

	return t.Send(ctx, Message{From: from, To: offer.OwnerEmail, Subject: subject, Body: body})
}
