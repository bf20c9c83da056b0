package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"RACE-backend/internal/platform/apierr"
)

type AuthHandler struct{ svc AuthService }

// RegisterRoutes: public には /login、admin（RequireRole済み）にはアカウント管理
func RegisterRoutes(public gin.IRoutes, admin gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	public.POST("/login", h.Login)

	admin.POST("/accounts", h.Register)
	admin.GET("/accounts", h.ListAccounts)
	admin.DELETE("/accounts/:email", h.DeleteAccount)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"` // 学生は空で良い
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid request"))
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			c.JSON(http.StatusUnauthorized, apierr.Body(apierr.CodeUnauthenticated, "Invalid email or password."))
			return
		}
		c.JSON(http.StatusInternalServerError, apierr.Body(apierr.CodeInternal, "login failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   res.Token,
		"user":    res.Identity,
		"message": "Login successful",
	})
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid request"))
		return
	}

	err := h.svc.Register(c.Request.Context(), RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Name:       req.Name,
		Department: req.Department,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "registered"})
	case errors.Is(err, ErrInvalidRole):
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "role must be one of faculty, mentor, hod, admin, technician"))
	case errors.Is(err, ErrAlreadyExists):
		c.JSON(http.StatusConflict, apierr.Body(apierr.CodeConflict, "email already exists"))
	default:
		c.JSON(http.StatusInternalServerError, apierr.Body(apierr.CodeInternal, "register failed"))
	}
}

type AccountResponse struct {
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	IsDisabled bool      `json:"is_disabled"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *AuthHandler) ListAccounts(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierr.Body(apierr.CodeInternal, "list failed"))
		return
	}
	out := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, AccountResponse{
			Email: a.Email, Role: a.Role, Name: a.Name, Department: a.Department,
			IsDisabled: a.IsDisabled, CreatedAt: a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	email := c.Param("email")

	if err := h.svc.Delete(c.Request.Context(), email); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, apierr.Body(apierr.CodeNotFound, "not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, apierr.Body(apierr.CodeInternal, "delete failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
