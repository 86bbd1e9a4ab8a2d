package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/humrah/backend/internal/domain"
)

func (h *Handler) initAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin", h.userIdentityMiddleware, h.adminMiddleware)

	admin.GET("/verification/review", h.listManualReview)
	admin.POST("/verification/sessions/:id/override", h.overrideSession)
	admin.GET("/verification/users/:id/history", h.userVerificationHistory)
}

// @Summary List sessions pending review
// @Tags Admin
// @Description Manual-review queue, oldest first
// @ModuleID listManualReview
// @Accept  json
// @Produce  json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} service.ReviewSummary
// @Failure 500
// @Security AdminAuth
// @Router /admin/verification/review [get]
func (h *Handler) listManualReview(c *gin.Context) {
	limit, offset := pagination(c)

	out, err := h.services.Admin.ListManualReview(c.Request.Context(), limit, offset)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

type overrideRequest struct {
	Verdict string  `json:"verdict" binding:"required,oneof=APPROVED REJECTED"`
	Reason  *string `json:"reason" binding:"omitempty,max=500"`
}

// @Summary Override a manual-review session
// @Tags Admin
// @Description Records the reviewer verdict on a MANUAL_REVIEW session
// @ModuleID overrideSession
// @Accept  json
// @Produce  json
// @Param id path string true "Session ID"
// @Param input body overrideRequest true "Verdict"
// @Success 200
// @Failure 400,404,409 {object} ErrorStruct
// @Failure 500
// @Security AdminAuth
// @Router /admin/verification/sessions/{id}/override [post]
func (h *Handler) overrideSession(c *gin.Context) {
	reviewerID, err := h.getUserUUID(c)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, SessionNotFoundCode)
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationErrorResponse(c, err)
		return
	}

	err = h.services.Admin.Override(c.Request.Context(), sessionID, reviewerID, domain.SessionStatus(req.Verdict), req.Reason)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// @Summary User verification history
// @Tags Admin
// @Description All verification sessions of one user, newest first
// @ModuleID userVerificationHistory
// @Accept  json
// @Produce  json
// @Param id path string true "User ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} service.ReviewSummary
// @Failure 404 {object} ErrorStruct
// @Failure 500
// @Security AdminAuth
// @Router /admin/verification/users/{id}/history [get]
func (h *Handler) userVerificationHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, UserNotFoundCode)
		return
	}

	limit, offset := pagination(c)

	out, err := h.services.Admin.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
