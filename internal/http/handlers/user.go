package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/terrenos-crm-backend/internal/http/response"
	"github.com/yungbote/terrenos-crm-backend/internal/http/validation"
	"github.com/yungbote/terrenos-crm-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.userService.GetMe(dbcFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, me)
}

// GET /api/users?role=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(dbcFrom(c), c.Query("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, users)
}

// POST /api/users (admin)
func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"`
	}
	if err := validation.BindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	u, err := h.userService.Create(c.Request.Context(), services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Usuario creado", u)
}
