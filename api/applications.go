package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/jobvacancy/internal/submission"
)

const maxApplicationBody = 64 << 10

// The url field is only type-checked here; its format is judged by the
// submission service so the client gets the "Invalid url" message. The email
// is opaque and carries no format rule.
var applicationSchema = mustSchema(`{
	"type": "object",
	"required": ["offerId", "fullname", "email", "url"],
	"properties": {
		"offerId": {"type": "integer", "minimum": 1},
		"fullname": {"type": "string", "minLength": 1, "maxLength": 200, "pattern": "\\S"},
		"email": {"type": "string", "minLength": 1, "maxLength": 320},
		"url": {"type": "string", "maxLength": 2048}
	}
}`)

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic("api: bad application schema: " + err.Error())
	}
	return rs
}

// Submitter is satisfied by *submission.Service.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (*submission.Result, error)
}

type ApplicationsHandler struct {
	svc Submitter
}

func NewApplicationsHandler(svc Submitter) *ApplicationsHandler {
	return &ApplicationsHandler{svc: svc}
}

type postApplicationRequest struct {
	OfferID  int64  `json:"offerId"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	URL      string `json:"url"`
}

type postApplicationResponse struct {
	Status           string `json:"status"`
	ApplicationID    int64  `json:"application_id"`
	ApplicationCount int    `json:"application_count"`
}

func (h *ApplicationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxApplicationBody))
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	keyErrs, err := applicationSchema.ValidateBytes(ctx, body)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.PropertyPath+": "+ke.Message)
		}
		http.Error(w, "invalid request: "+strings.Join(msgs, "; "), http.StatusBadRequest)
		return
	}

	var req postApplicationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Submit(ctx, submission.Request{
		OfferID:  req.OfferID,
		Fullname: strings.TrimSpace(req.Fullname),
		Email:    strings.TrimSpace(req.Email),
		URL:      strings.TrimSpace(req.URL),
	})
	if err != nil {
		var verr *submission.ValidationError
		var nferr *submission.NotFoundError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Message, http.StatusBadRequest)
		case errors.As(err, &nferr):
			http.Error(w, nferr.Error(), http.StatusNotFound)
		default:
			logger.Error("submit application", slog.Int64("offer_id", req.OfferID), slog.Any("err", err))
			http.Error(w, "failed to submit application", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, postApplicationResponse{
		Status:           "accepted",
		ApplicationID:    res.ApplicationID,
		ApplicationCount: res.ApplicationCount,
	}, http.StatusAccepted)
}
