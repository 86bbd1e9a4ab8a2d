package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/humrah/backend/internal/service"
	"github.com/humrah/backend/pkg/logger"
)

func errorResponse(c *gin.Context, status int, code ErrorCode) {
	c.AbortWithStatusJSON(status, getErrorStruct(code))
}

// serviceErrorResponse maps service errors onto stable HTTP status and error
// codes; anything unrecognized is a 500 and gets logged.
func serviceErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		errorResponse(c, http.StatusNotFound, UserNotFoundCode)
	case errors.Is(err, service.ErrAlreadyVerified):
		errorResponse(c, http.StatusConflict, AlreadyVerifiedCode)
	case errors.Is(err, service.ErrRateLimited):
		errorResponse(c, http.StatusTooManyRequests, RateLimitedCode)
	case errors.Is(err, service.ErrSessionInProgress):
		errorResponse(c, http.StatusConflict, SessionInProgressCode)
	case errors.Is(err, service.ErrSessionNotFound):
		errorResponse(c, http.StatusNotFound, SessionNotFoundCode)
	case errors.Is(err, service.ErrInvalidState):
		errorResponse(c, http.StatusConflict, InvalidStateCode)
	case errors.Is(err, service.ErrSessionExpired):
		errorResponse(c, http.StatusGone, SessionExpiredCode)
	case errors.Is(err, service.ErrVideoTooLarge):
		errorResponse(c, http.StatusRequestEntityTooLarge, VideoTooLargeCode)
	case errors.Is(err, service.ErrBadMediaType):
		errorResponse(c, http.StatusUnsupportedMediaType, BadMediaTypeCode)
	case errors.Is(err, service.ErrInvalidVerdict):
		errorResponse(c, http.StatusBadRequest, InvalidVerdictCode)
	default:
		logger.Error("request failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

func validationErrorResponse(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		out := make([]ValidationError, len(verr))
		for i, ferr := range verr {
			out[i] = ValidationError{ferr.Field(), msgForTag(ferr.Tag(), ferr.Param())}
		}
		response := ValidationErrorStruct{
			ErrorCode:    6000,
			ErrorMessage: "Validation error",
		}
		response.Errors = out
		c.JSON(http.StatusBadRequest, response)
		return
	}

	c.AbortWithStatus(http.StatusBadRequest)
}

func msgForTag(tag string, value string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "oneof":
		return fmt.Sprintf("Value must be one of: %v", value)
	case "min":
		return fmt.Sprintf("Minimum length is %v", value)
	case "max":
		return fmt.Sprintf("Maximum length is %v", value)
	}
	return tag
}
