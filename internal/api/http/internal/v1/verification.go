package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) initVerificationRoutes(api *gin.RouterGroup) {
	verification := api.Group("/verification", h.userIdentityMiddleware)

	verification.POST("/sessions", h.startVerificationSession)
	verification.POST("/sessions/:id/video", h.uploadVerificationVideo)
	verification.GET("/sessions/:id", h.getVerificationStatus)
}

// @Summary Start verification session
// @Tags Verification
// @Description Creates a PENDING verification session and returns the recording instructions
// @ModuleID startVerificationSession
// @Accept  json
// @Produce  json
// @Success 201 {object} service.StartSessionOutput
// @Failure 404,409,429 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /verification/sessions [post]
func (h *Handler) startVerificationSession(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	out, err := h.services.Verification.StartSession(c.Request.Context(), userID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, out)
}

type uploadResponse struct {
	Status string `json:"status"`
}

// @Summary Upload verification video
// @Tags Verification
// @Description Attaches the recorded video to a PENDING session and starts processing
// @ModuleID uploadVerificationVideo
// @Accept  multipart/form-data
// @Produce  json
// @Param id path string true "Session ID"
// @Param video formData file true "Recorded verification video"
// @Success 202 {object} uploadResponse
// @Failure 404,409,410,413,415 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /verification/sessions/{id}/video [post]
func (h *Handler) uploadVerificationVideo(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, SessionNotFoundCode)
		return
	}

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		errorResponse(c, http.StatusUnsupportedMediaType, BadMediaTypeCode)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	err = h.services.Verification.AttachMedia(c.Request.Context(), sessionID, userID, file, header.Size, contentType)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusAccepted, uploadResponse{Status: "PROCESSING"})
}

// @Summary Get verification status
// @Tags Verification
// @Description Returns the session status and, once terminal, its result
// @ModuleID getVerificationStatus
// @Accept  json
// @Produce  json
// @Param id path string true "Session ID"
// @Success 200 {object} service.SessionStatusOutput
// @Failure 404 {object} ErrorStruct
// @Failure 500
// @Security UserAuth
// @Router /verification/sessions/{id} [get]
func (h *Handler) getVerificationStatus(c *gin.Context) {
	userID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, SessionNotFoundCode)
		return
	}

	out, err := h.services.Verification.GetStatus(c.Request.Context(), sessionID, userID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}
