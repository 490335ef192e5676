package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"photoshelf/internal/app"
	"photoshelf/internal/transport/http/middleware"
	"photoshelf/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	cookie      CookieConfig
}

// CookieConfig describes the session cookie the login handler sets.
type CookieConfig struct {
	Name   string
	Secure bool
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserDataResponse struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	PhotosUploaded  int    `json:"photos_uploaded"`
	PhotosRemaining int    `json:"photos_remaining"`
}

func NewAuthHandler(authService *app.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusConflict, response.CodeEmailExists, err.Error())
		default:
			slog.Error("register failed", "error", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.JSON(c, http.StatusCreated, UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid credentials")
		default:
			slog.Error("login failed", "error", err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	h.setSessionCookie(c, result.Token, int(h.authService.TokenLifetime().Seconds()))
	response.Message(c, http.StatusOK, "Login successful")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, expiresAt := middleware.TokenID(c)
	h.setSessionCookie(c, "", -1)

	if err := h.authService.Logout(c.Request.Context(), tokenID, expiresAt); err != nil {
		slog.Error("revoke token failed", "token_id", tokenID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "logout failed")
		return
	}
	response.Message(c, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) UserData(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid token payload")
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, app.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
			return
		}
		slog.Error("fetch user data failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to fetch user data")
		return
	}

	response.JSON(c, http.StatusOK, UserDataResponse{
		Name:            user.Name,
		Email:           user.Email,
		PhotosUploaded:  user.PhotosUploaded,
		PhotosRemaining: user.PhotosRemaining,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
