package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/dto"
	"github.com/prperemyshlev/identity-service/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Signup handles the first signup step
// @Summary Start signup
// @Description Claim an email and send a verification code to it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup request"
// @Success 201 {object} dto.VerificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ticket, err := h.authService.BeginSignup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewVerificationResponse(ticket))
}

// CompleteSignup handles the second signup step
// @Summary Complete signup
// @Description Verify the emailed code and activate the account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CompleteSignupRequest true "Complete signup request"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /auth/signup/complete [post]
func (h *AuthHandler) CompleteSignup(c *gin.Context) {
	var req dto.CompleteSignupRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	user, err := h.authService.CompleteSignup(c.Request.Context(), req.Email, req.Password, req.Token, req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user, nil))
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} domain.TokenPair
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, deviceFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Token handles access token issuance
// @Summary Get access token
// @Description Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Token request"
// @Success 200 {object} domain.AccessToken
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	token, err := h.authService.GetAccessToken(c.Request.Context(), req.RefreshToken, deviceFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the presented refresh token. With a bearer token only the caller's own tokens can be revoked.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LogoutRequest true "Logout request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken, c.GetString(contextUserID)); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// BeginPasswordReset handles the first step of a code based password reset
// @Summary Start password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetRequest true "Password reset request"
// @Success 201 {object} dto.VerificationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/password-reset [post]
func (h *AuthHandler) BeginPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ticket, err := h.authService.BeginPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewVerificationResponse(ticket))
}

// CompletePasswordReset handles the second step of a code based password reset
// @Summary Complete password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CompletePasswordResetRequest true "Complete password reset request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/password-reset/complete [post]
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req dto.CompletePasswordResetRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	err := h.authService.CompletePasswordReset(c.Request.Context(), req.Email, req.NewPassword, req.Token, req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password has been reset",
	})
}

// RequestPasswordResetLink handles requests for an emailed reset link
// @Summary Request password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetLinkRequest true "Password reset link request"
// @Success 202 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/password-reset/link [post]
func (h *AuthHandler) RequestPasswordResetLink(c *gin.Context) {
	var req dto.PasswordResetLinkRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.authService.RequestPasswordResetLink(c.Request.Context(), req.Email, req.RedirectURL); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{
		Message: "Password reset link sent",
	})
}

// ResetPassword handles password resets from an emailed link
// @Summary Reset password with link token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset password request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.PasswordResetToken, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password has been reset",
	})
}
