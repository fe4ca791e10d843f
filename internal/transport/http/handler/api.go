package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mangoleaf/internal/app"
	"mangoleaf/internal/transport/http/middleware"
	"mangoleaf/internal/transport/http/response"
)

// AnalysisHandler is the JSON counterpart of PageHandler.
type AnalysisHandler struct {
	service *app.AnalysisService
}

func NewAnalysisHandler(service *app.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

func (h *AnalysisHandler) State(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, state)
}

func (h *AnalysisHandler) Upload(c *gin.Context) {
	input, err := readUpload(c)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	ctx := c.Request.Context()
	sessionID := middleware.SessionID(c)
	if _, err := h.service.Upload(ctx, sessionID, input); err != nil {
		if errors.Is(err, app.ErrNotAnImage) {
			state, stateErr := h.service.State(ctx, sessionID)
			if stateErr == nil {
				response.ErrorWithData(c, http.StatusUnsupportedMediaType, response.CodeNotAnImage, err.Error(), state)
				return
			}
		}
		writeServiceError(c, err)
		return
	}

	h.State(c)
}

func (h *AnalysisHandler) Reset(c *gin.Context) {
	if _, err := h.service.Reset(c.Request.Context(), middleware.SessionID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	h.State(c)
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.SessionID(c)

	result, err := h.service.Submit(ctx, sessionID)
	if err != nil {
		if !isUserFacing(err) {
			log.Printf("analyze failed: %v", err)
		}
		writeServiceError(c, err)
		return
	}

	state, err := h.service.State(ctx, sessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, gin.H{
		"result": result,
		"state":  state,
	})
}
