package dto

import (
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    domain.ErrorCode  `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewErrorResponse converts a domain error into its response body
func NewErrorResponse(err *domain.Error) ErrorResponse {
	return ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
		Details: err.Details,
	}
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// VerificationResponse carries the token half of an emailed one-time code
type VerificationResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewVerificationResponse converts a verification ticket
func NewVerificationResponse(ticket *domain.VerificationTicket) VerificationResponse {
	return VerificationResponse{
		Token:     ticket.Token,
		ExpiresAt: ticket.ExpiresAt,
	}
}

// ChangePasswordResponse carries the replacement refresh token, if one was minted
type ChangePasswordResponse struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SessionResponse describes one refresh token of the current user
type SessionResponse struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	UserAgent  string    `json:"user_agent"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSessionResponses converts refresh tokens, keeping their order
func NewSessionResponses(tokens []*domain.RefreshToken) []SessionResponse {
	sessions := make([]SessionResponse, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, SessionResponse{
			ID:         token.ID,
			IP:         token.IP,
			UserAgent:  token.UserAgent,
			LastUsedAt: token.LastUsedAt,
			CreatedAt:  token.CreatedAt,
		})
	}
	return sessions
}

// UserResponse represents a user response
type UserResponse struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	Verified  bool              `json:"verified"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Logins    []SessionResponse `json:"logins,omitempty"`
}

// NewUserResponse converts a user and, optionally, its sessions
func NewUserResponse(user *domain.User, tokens []*domain.RefreshToken) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if tokens != nil {
		resp.Logins = NewSessionResponses(tokens)
	}
	return resp
}
