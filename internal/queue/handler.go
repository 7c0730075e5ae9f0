package queue

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/publishq/publishqd/internal/domain"
	"github.com/publishq/publishqd/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrItemNotFound, Status: http.StatusNotFound, Message: "queue item not found"},
	{Error: ErrNoPlatforms, Status: http.StatusBadRequest, Message: "at least one platform is required"},
	{Error: ErrDuplicatePlatform, Status: http.StatusBadRequest},
	{Error: ErrAlreadyRunning, Status: http.StatusConflict, Message: "scheduler already running"},
	{Error: ErrNotRunning, Status: http.StatusConflict, Message: "scheduler is not running"},
	{Error: ErrNotPaused, Status: http.StatusConflict, Message: "scheduler is not paused"},
}

// Handler handles HTTP requests for the queue module.
type Handler struct {
	service   *Service
	scheduler *Scheduler
	validator *validator.Validate
}

// NewHandler creates a new queue handler.
func NewHandler(service *Service, scheduler *Scheduler) *Handler {
	return &Handler{
		service:   service,
		scheduler: scheduler,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the queue module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/queue", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.EnqueueItem)
			r.Post("/retry", h.RetrySelected)
			r.Post("/cancel", h.CancelSelected)
			r.Get("/{id}", h.GetItem)
			r.Delete("/{id}", h.DeleteItem)
			r.Post("/{id}/retry", h.RetryItem)
			r.Post("/{id}/cancel", h.CancelItem)
		})

		r.Post("/start", h.StartScheduler)
		r.Post("/pause", h.PauseScheduler)
		r.Post("/resume", h.ResumeScheduler)
		r.Post("/stop", h.StopScheduler)
		r.Get("/status", h.SchedulerStatus)

		r.Get("/view", h.GetView)
		r.Put("/view", h.SetView)

		r.Get("/metrics", h.QueueMetrics)
	})
}

// EnqueueRequest represents the request body for enqueueing an item.
type EnqueueRequest struct {
	Title             string     `json:"title" validate:"required,min=1,max=255"`
	Content           string     `json:"content" validate:"required"`
	Tags              []string   `json:"tags" validate:"max=50,dive,min=1,max=100"`
	MediaURLs         []string   `json:"media_urls" validate:"max=20,dive,url"`
	CreatedBy         string     `json:"created_by" validate:"max=255"`
	Priority          string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Platforms         []string   `json:"platforms" validate:"required,min=1,dive,oneof=twitter facebook instagram linkedin tiktok"`
	ScheduledAt       *time.Time `json:"scheduled_at"`
	EstimatedDuration int        `json:"estimated_duration" validate:"gte=0"`
	MaxRetries        *int       `json:"max_retries" validate:"omitempty,gte=0,lte=10"`
}

// ToInput converts the request to a service input.
func (r *EnqueueRequest) ToInput() EnqueueInput {
	input := EnqueueInput{
		Title:             r.Title,
		Content:           r.Content,
		Tags:              r.Tags,
		MediaURLs:         r.MediaURLs,
		CreatedBy:         r.CreatedBy,
		Priority:          domain.Priority(r.Priority),
		EstimatedDuration: r.EstimatedDuration,
		MaxRetries:        r.MaxRetries,
	}
	for _, platform := range r.Platforms {
		input.Platforms = append(input.Platforms, domain.Platform(platform))
	}
	if r.ScheduledAt != nil {
		input.ScheduledAt = *r.ScheduledAt
	}
	return input
}

// BulkRequest represents the request body for bulk retry and cancel.
type BulkRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}

// SetViewRequest represents the request body for updating the default view.
type SetViewRequest struct {
	Status   string `json:"status" validate:"omitempty,oneof=pending publishing published failed"`
	Platform string `json:"platform" validate:"omitempty,oneof=twitter facebook instagram linkedin tiktok"`
	Sort     string `json:"sort" validate:"omitempty,oneof=scheduled_at priority status"`
}

// EnqueueItem handles POST /queue/items.
func (h *Handler) EnqueueItem(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	item, err := h.service.Enqueue(r.Context(), req.ToInput())
	if err != nil {
		var rejected *ContentRejectedError
		if errors.As(err, &rejected) {
			httputil.JSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": map[string]interface{}{
					"message": "content rejected",
					"details": rejected.Reasons,
				},
			})
			return
		}
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, item)
}

// GetItem handles GET /queue/items/{id}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, item)
}

// ListItems handles GET /queue/items. Without query parameters the stored
// default view applies; any parameter switches to fully explicit options.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts *ListOptions
	if query.Has("status") || query.Has("platform") || query.Has("sort") {
		explicit := ListOptions{}
		if raw := query.Get("status"); raw != "" {
			status, err := domain.ParseItemStatus(raw)
			if err != nil {
				httputil.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			explicit.Status = status
		}
		if raw := query.Get("platform"); raw != "" {
			platform, err := domain.ParsePlatform(raw)
			if err != nil {
				httputil.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			explicit.Platform = platform
		}
		if raw := query.Get("sort"); raw != "" {
			sort, err := ParseSortKey(raw)
			if err != nil {
				httputil.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			explicit.Sort = sort
		}
		opts = &explicit
	}

	items, err := h.service.ListItems(r.Context(), opts)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// DeleteItem handles DELETE /queue/items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RetryItem handles POST /queue/items/{id}/retry.
func (h *Handler) RetryItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RetryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// CancelItem handles POST /queue/items/{id}/cancel.
func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CancelItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// RetrySelected handles POST /queue/items/retry.
func (h *Handler) RetrySelected(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.RetrySelected(r.Context(), req.IDs)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// CancelSelected handles POST /queue/items/cancel.
func (h *Handler) CancelSelected(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.CancelSelected(r.Context(), req.IDs)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

// StartScheduler handles POST /queue/start.
func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Start(); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, h.scheduler.Info())
}

// PauseScheduler handles POST /queue/pause.
func (h *Handler) PauseScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Pause(); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, h.scheduler.Info())
}

// ResumeScheduler handles POST /queue/resume.
func (h *Handler) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Resume(); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, h.scheduler.Info())
}

// StopScheduler handles POST /queue/stop.
func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	httputil.Success(w, http.StatusOK, h.scheduler.Info())
}

// SchedulerStatus handles GET /queue/status.
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.scheduler.Info())
}

// GetView handles GET /queue/view.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.service.View())
}

// SetView handles PUT /queue/view. The request replaces the whole view;
// empty fields clear the filter or restore the default order.
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req SetViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	h.service.SetFilter(domain.ItemStatus(req.Status), domain.Platform(req.Platform))
	view := h.service.SetSort(SortKey(req.Sort))

	httputil.Success(w, http.StatusOK, view)
}

// QueueMetrics handles GET /queue/metrics.
func (h *Handler) QueueMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Metrics(r.Context(), h.scheduler.Info())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, m)
}
