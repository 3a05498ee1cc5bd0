package talks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"livebook-backend/internal/shared/server/middleware"
	"livebook-backend/internal/shared/server/respond"
)

const maxUploadSize = 200 << 20 // 200MB of talk audio

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches talk routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/talks", h.create)
	rg.GET("/talks", h.list)
	rg.GET("/talks/:id", h.get)
	rg.DELETE("/talks/:id", h.delete)
}

// RegisterInternalRoutes attaches the transcription collaborator callback.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/talks/:id/transcription", h.transcriptionCallback)
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "audio file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read audio file", nil)
		return
	}
	defer file.Close()

	in := CreateInput{
		Title:     c.PostForm("title"),
		Speaker:   c.PostForm("speaker"),
		EventName: c.PostForm("event"),
		Seniority: c.PostForm("seniority"),
		Verbosity: c.PostForm("verbosity"),
	}

	talk, err := h.Svc.Create(c.Request.Context(), userID, in, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "talk_create_failed", err.Error(), nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(talk))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "talk_list_failed", err.Error(), nil)
		return
	}

	out := make([]talkResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toResponse(t))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	talk, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "talk not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "talk_get_failed", err.Error(), nil)
		return
	}
	respond.OK(c, toResponse(talk))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "talk not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "talk_delete_failed", err.Error(), nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type transcriptionCallbackRequest struct {
	Status     string `json:"status"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

func (h *Handler) transcriptionCallback(c *gin.Context) {
	var req transcriptionCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	talkID := c.Param("id")
	var err error
	switch req.Status {
	case "completed":
		err = h.Svc.CompleteTranscription(c.Request.Context(), talkID, req.Transcript)
	case "failed":
		err = h.Svc.FailTranscription(c.Request.Context(), talkID, req.Error)
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "status must be completed or failed", nil)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "talk not found", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "talk already reached a terminal status", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "transcription_callback_failed", err.Error(), nil)
		}
		return
	}
	respond.OK(c, gin.H{"success": true})
}
