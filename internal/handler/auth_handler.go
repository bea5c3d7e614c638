package handler

import (
	"errors"

	"cardio-go/internal/dto"
	"cardio-go/internal/middleware"
	"cardio-go/internal/service"
	"cardio-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken),
			errors.Is(err, service.ErrEmailTaken),
			errors.Is(err, service.ErrPasswordTooLong):
			utils.BadRequest(c, err.Error())
		default:
			utils.InternalError(c, "Error registering user")
		}
		return
	}

	utils.SuccessWithMessage(c, "User registered", dto.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	})
}

// Login 用户登录,表单编码的用户名和密码
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		utils.Unauthorized(c, service.ErrInvalidCredentials.Error())
		return
	}

	resp, err := h.authService.Login(username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserDisabled):
			utils.Unauthorized(c, err.Error())
		default:
			utils.InternalError(c, "Error logging in")
		}
		return
	}

	utils.SuccessResponse(c, resp)
}

// GetMe 获取当前用户信息
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		utils.Unauthorized(c, "Not authenticated")
		return
	}

	userInfo, err := h.authService.GetMe(userID)
	if err != nil {
		utils.NotFound(c, err.Error())
		return
	}

	utils.SuccessResponse(c, userInfo)
}
