package v1

import (
	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/service"
	"github.com/humrah/backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

// @title Humrah Verification API
// @version 1.0
// @description Identity verification backend

// @BasePath /api/v1

// @securityDefinitions.apikey AdminAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey UserAuth
// @in header
// @name Authorization

type Handler struct {
	services     *service.Services
	tokenManager auth.TokenManager
	config       *config.Config
}

func NewHandler(
	services *service.Services,
	tokenManager auth.TokenManager,
	config *config.Config,
) *Handler {
	return &Handler{
		services:     services,
		tokenManager: tokenManager,
		config:       config,
	}
}

func (h *Handler) Init(api *gin.RouterGroup) {
	v1 := api.Group("v1")

	h.initVerificationRoutes(v1)
	h.initAdminRoutes(v1)
}
