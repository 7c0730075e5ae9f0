package compliance

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/publishq/publishqd/internal/domain"
	"github.com/publishq/publishqd/internal/pkg/httputil"
)

// Handler handles HTTP requests for the compliance module.
type Handler struct {
	checker   *Checker
	validator *validator.Validate
}

// NewHandler creates a new compliance handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{
		checker:   checker,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the compliance module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Post("/check", h.CheckContent)
	})
}

// CheckRequest represents a draft item to evaluate. Platforms may be empty
// to preview the content against every supported platform.
type CheckRequest struct {
	Title       string     `json:"title" validate:"max=255"`
	Content     string     `json:"content"`
	Tags        []string   `json:"tags" validate:"max=50,dive,min=1,max=100"`
	MediaURLs   []string   `json:"media_urls" validate:"max=20,dive,url"`
	Platforms   []string   `json:"platforms" validate:"dive,oneof=twitter facebook instagram linkedin tiktok"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// ToItem converts the request into a draft item for evaluation.
func (r *CheckRequest) ToItem() *domain.Item {
	item := &domain.Item{
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		MediaURLs: r.MediaURLs,
	}
	for _, platform := range r.Platforms {
		item.Platforms = append(item.Platforms, domain.PlatformTarget{
			Platform: domain.Platform(platform),
			Status:   domain.TargetStatusPending,
		})
	}
	if r.ScheduledAt != nil {
		item.ScheduledAt = *r.ScheduledAt
	}
	return item
}

// CheckContent handles POST /compliance/check.
func (h *Handler) CheckContent(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	report := h.checker.Evaluate(req.ToItem())
	httputil.Success(w, http.StatusOK, report)
}
