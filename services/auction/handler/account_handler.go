package handler

import (
	"context"
	"net/http"
	"time"

	account "auction-market/internal/accountService"
	model "auction-market/internal/models"
	"auction-market/services/auction/helpers"
	"auction-market/utils"

	"github.com/gin-gonic/gin"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (model.Account, error)
	Login(ctx context.Context, username, password string) (account.Session, model.Account, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, accountID string) (model.Account, error)
	UpdateProfile(ctx context.Context, accountID string, update account.ProfileUpdate) (model.Account, error)
}

type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterHandler handles POST /accounts
func (h *AccountHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	created, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "RegisterHandler", err, map[string]any{"username": req.Username})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, created, "account registered successfully")
	helpers.LogSuccess("RegisterHandler", "account registered successfully", map[string]any{
		"account_id": created.AccountID,
		"username":   created.Username,
	})
}

// LoginHandler handles POST /sessions
func (h *AccountHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	sess, acc, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "LoginHandler", err, map[string]any{"username": req.Username})
		return
	}

	resp := helpers.LoginResponse{
		Token:     sess.Token,
		AccountID: acc.AccountID,
		Username:  acc.Username,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "logged in successfully")
	helpers.LogSuccess("LoginHandler", "logged in successfully", map[string]any{"account_id": acc.AccountID})
}

// LogoutHandler handles DELETE /sessions
func (h *AccountHandler) LogoutHandler(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), helpers.BearerToken(c)); err != nil {
		helpers.HandleServiceError(c, "LogoutHandler", err, map[string]any{"account_id": helpers.CallerID(c)})
		return
	}

	utils.JSONResponse(c, http.StatusOK, nil, "logged out successfully")
}

// GetProfileHandler handles GET /me
func (h *AccountHandler) GetProfileHandler(c *gin.Context) {
	callerID := helpers.CallerID(c)
	profile, err := h.service.GetProfile(c.Request.Context(), callerID)
	if err != nil {
		helpers.HandleServiceError(c, "GetProfileHandler", err, map[string]any{"account_id": callerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, profile, "profile retrieved successfully")
}

// UpdateProfileHandler handles PATCH /me
func (h *AccountHandler) UpdateProfileHandler(c *gin.Context) {
	var req helpers.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateProfileHandler", err)
		return
	}

	callerID := helpers.CallerID(c)
	profile, err := h.service.UpdateProfile(c.Request.Context(), callerID, account.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Image:    req.Image,
	})
	if err != nil {
		helpers.HandleServiceError(c, "UpdateProfileHandler", err, map[string]any{"account_id": callerID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, profile, "profile updated successfully")
	helpers.LogSuccess("UpdateProfileHandler", "profile updated successfully", map[string]any{"account_id": callerID})
}
