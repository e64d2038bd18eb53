package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	pair, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Inicio de sesión exitoso", pair)
}

func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pair)
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OKMessage(c, "Sesión cerrada", nil)
}
