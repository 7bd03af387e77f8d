package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/garnizeh/jobvacancy/internal/identity"
	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

type OffersHandler struct {
	offerRepo repository.JobOfferRepo
	userRepo  repository.UserRepo
}

func NewOffersHandler(or repository.JobOfferRepo, ur repository.UserRepo) *OffersHandler {
	return &OffersHandler{offerRepo: or, userRepo: ur}
}

type postOfferRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}

type postOfferResponse struct {
	ID int64 `json:"id"`
}

// CreateOffer publishes an offer owned by the authenticated user.
func (h *OffersHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	login, ok := identity.LoginFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	owner, err := h.userRepo.GetByLogin(r.Context(), login)
	if err != nil {
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	if owner == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req postOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.Capacity <= 0 {
		http.Error(w, "capacity must be positive", http.StatusBadRequest)
		return
	}

	o := &models.JobOffer{
		Title:       req.Title,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
		OwnerID:     owner.ID,
		Capacity:    req.Capacity,
	}
	id, err := h.offerRepo.CreateOffer(r.Context(), o)
	if err != nil {
		logger.Error("create offer", slog.String("owner", login), slog.Any("err", err))
		http.Error(w, "failed to store offer", http.StatusInternalServerError)
		return
	}

	writeJSON(w, postOfferResponse{ID: id}, http.StatusCreated)
}

func (h *OffersHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid offer id", http.StatusBadRequest)
		return
	}

	o, err := h.offerRepo.FindByID(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load offer", http.StatusInternalServerError)
		return
	}
	if o == nil {
		http.Error(w, "offer not found", http.StatusNotFound)
		return
	}

	writeJSON(w, o, http.StatusOK)
}

func (h *OffersHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// pagination: limit and offset params
	limit := 50
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset := 0
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	offers, err := h.offerRepo.ListOffers(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "failed to list offers", http.StatusInternalServerError)
		return
	}

	total, err := h.offerRepo.CountOffers(r.Context())
	if err != nil {
		http.Error(w, "failed to count offers", http.StatusInternalServerError)
		return
	}

	if offers == nil {
		offers = []models.JobOffer{}
	}

	resp := map[string]any{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  offers,
	}

	writeJSON(w, resp, http.StatusOK)
}
