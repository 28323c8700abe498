package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// MeHandler serves the authenticated user's own account
type MeHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewMeHandler creates a new account handler
func NewMeHandler(authService service.AuthService, logger *zap.Logger) *MeHandler {
	return &MeHandler{
		authService: authService,
		logger:      logger,
	}
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Description Get the current user together with its active logins
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /me [get]
func (h *MeHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(contextUserID)

	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	sessions, err := h.authService.ListSessions(ctx, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user, sessions))
}

// ListLogins lists the current user's refresh tokens
// @Summary List logins
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /me/logins [get]
func (h *MeHandler) ListLogins(c *gin.Context) {
	sessions, err := h.authService.ListSessions(c.Request.Context(), c.GetString(contextUserID))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponses(sessions))
}

// RevokeLogin revokes one of the current user's refresh tokens
// @Summary Revoke login
// @Tags me
// @Security BearerAuth
// @Produce json
// @Param id path string true "Login id"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Router /me/logins/{id} [delete]
func (h *MeHandler) RevokeLogin(c *gin.Context) {
	if err := h.authService.RevokeSession(c.Request.Context(), c.GetString(contextUserID), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ChangePassword changes the current user's password
// @Summary Change password
// @Description With revoke_refresh_tokens set every login is revoked and a replacement refresh token is returned
// @Tags me
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Change password request"
// @Success 200 {object} dto.ChangePasswordResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /me/password [put]
func (h *MeHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	refreshToken, err := h.authService.ChangePassword(
		c.Request.Context(),
		c.GetString(contextUserID),
		req.OldPassword,
		req.NewPassword,
		req.RevokeRefreshTokens,
		deviceFrom(c),
	)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ChangePasswordResponse{RefreshToken: refreshToken})
}

// BeginEmailChange starts an email change of the current user
// @Summary Start email change
// @Tags me
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.EmailChangeRequest true "Email change request"
// @Success 201 {object} dto.VerificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /me/email [post]
func (h *MeHandler) BeginEmailChange(c *gin.Context) {
	var req dto.EmailChangeRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ticket, err := h.authService.BeginEmailChange(c.Request.Context(), c.GetString(contextUserID), req.Password, req.NewEmail)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewVerificationResponse(ticket))
}

// CompleteEmailChange finishes an email change of the current user
// @Summary Complete email change
// @Tags me
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CompleteEmailChangeRequest true "Complete email change request"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /me/email/complete [post]
func (h *MeHandler) CompleteEmailChange(c *gin.Context) {
	var req dto.CompleteEmailChangeRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	user, err := h.authService.CompleteEmailChange(c.Request.Context(), c.GetString(contextUserID), req.NewEmail, req.Token, req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user, nil))
}
