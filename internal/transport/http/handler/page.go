package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mangoleaf/internal/app"
	"mangoleaf/internal/transport/http/middleware"
	"mangoleaf/internal/view"
)

// PageHandler serves the server-rendered upload page and its form posts.
// Every form post redirects back to the page (post/redirect/get).
type PageHandler struct {
	service      *app.AnalysisService
	healthyLabel string
	now          func() time.Time
}

func NewPageHandler(service *app.AnalysisService, healthyLabel string) *PageHandler {
	return &PageHandler{
		service:      service,
		healthyLabel: healthyLabel,
		now:          time.Now,
	}
}

func (h *PageHandler) Index(c *gin.Context) {
	session, err := h.service.Session(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		log.Printf("load session failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to load page")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, view.PageTemplate, view.Build(session, h.now(), h.service.Pulse(), h.healthyLabel))
}

func (h *PageHandler) Upload(c *gin.Context) {
	input, err := readUpload(c)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		h.backToPage(c)
		return
	}

	// Non-image files are dropped without touching the page state.
	if _, err := h.service.Upload(c.Request.Context(), middleware.SessionID(c), input); err != nil && !errors.Is(err, app.ErrNotAnImage) {
		log.Printf("upload failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to store image")
		return
	}
	h.backToPage(c)
}

func (h *PageHandler) Analyze(c *gin.Context) {
	_, err := h.service.Submit(c.Request.Context(), middleware.SessionID(c))
	if err != nil && !isUserFacing(err) {
		log.Printf("analyze failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to analyze image")
		return
	}
	h.backToPage(c)
}

func (h *PageHandler) Reset(c *gin.Context) {
	if _, err := h.service.Reset(c.Request.Context(), middleware.SessionID(c)); err != nil {
		log.Printf("reset failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to reset")
		return
	}
	h.backToPage(c)
}

func (h *PageHandler) Preview(c *gin.Context) {
	preview, err := h.service.Preview(c.Request.Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrImageNotFound) || errors.Is(err, app.ErrInvalidInput) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Printf("load preview failed: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "sandbox")
	c.Data(http.StatusOK, preview.ContentType, preview.Data)
}

func (h *PageHandler) backToPage(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}
