package livebooks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"livebook-backend/internal/shared/server/middleware"
	"livebook-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches livebook routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/talks/:id/livebooks", h.start)
	rg.GET("/talks/:id/status", h.status)
	rg.GET("/livebooks", h.list)
	rg.GET("/livebooks/:id", h.get)
	rg.DELETE("/livebooks/:id", h.delete)
}

func (h *Handler) start(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))

	lb, created, err := h.Svc.StartOrReuse(ctx, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "talk not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "livebook_start_failed", err.Error(), nil)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	respond.JSON(c, status, toResponse(lb))
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	talkID := c.Param("id")

	if !h.limiter.Allow(userID, talkID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "poll interval too short", nil)
		return
	}

	talk, lb, err := h.Svc.Status(c.Request.Context(), userID, talkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "talk not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "status_failed", err.Error(), nil)
		return
	}

	resp := statusResponse{
		Success: true,
		Talk: statusTalk{
			Status:     string(talk.Status),
			Transcript: talk.Transcript,
		},
	}
	if lb != nil {
		resp.Document = &statusDocument{
			Status:      string(lb.Status),
			ErrorDetail: lb.ErrorDetail,
			PDFURL:      lb.PDFURL,
			TextURL:     lb.TextURL,
		}
	}
	respond.OK(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "livebook_list_failed", err.Error(), nil)
		return
	}

	out := make([]livebookResponse, 0, len(items))
	for _, lb := range items {
		out = append(out, toResponse(lb))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	lb, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "livebook not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "livebook_get_failed", err.Error(), nil)
		return
	}
	respond.OK(c, toResponse(lb))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "livebook not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "livebook_delete_failed", err.Error(), nil)
		return
	}
	c.Status(http.StatusNoContent)
}
