package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/mailer"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"go.uber.org/zap"
)

const (
	resetTokenType  = "password_reset"
	resetQueryParam = "passwordResetToken"
)

// VerificationSettings configures one-time codes and password reset links
type VerificationSettings struct {
	Secret          []byte
	OTPDigits       int
	OTPExpiry       time.Duration
	OTPMaxAttempts  int
	ResetLinkExpiry time.Duration
}

// authService implements AuthService interface
type authService struct {
	userRepo     repository.UserRepository
	sessions     *SessionManager
	jwtManager   *utils.JWTManager
	passwords    *utils.PasswordPolicy
	mail         mailer.Sender
	ledger       OTPLedger
	verification VerificationSettings
	logger       *zap.Logger
	metrics      *observability.AuthMetrics
	dummyHash    string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	sessions *SessionManager,
	jwtManager *utils.JWTManager,
	passwords *utils.PasswordPolicy,
	mail mailer.Sender,
	ledger OTPLedger,
	verification VerificationSettings,
	logger *zap.Logger,
	metrics *observability.AuthMetrics,
) (AuthService, error) {
	// Compared against on unknown emails so that login takes as long as a real check
	dummyHash, err := utils.HashPassword("login-timing-placeholder", passwords.Cost())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare login hash: %w", err)
	}

	return &authService{
		userRepo:     userRepo,
		sessions:     sessions,
		jwtManager:   jwtManager,
		passwords:    passwords,
		mail:         mail,
		ledger:       ledger,
		verification: verification,
		logger:       logger,
		metrics:      metrics,
		dummyHash:    dummyHash,
	}, nil
}

// BeginSignup claims the email with an unverified user and mails a code.
// The password is only checked here; it is persisted on completion.
func (s *authService) BeginSignup(ctx context.Context, email, password string) (*domain.VerificationTicket, error) {
	email, err := normalizeEmail("email", email)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Validate(password) {
		return nil, domain.ErrInvalidPassword
	}

	if err := s.claimEmail(ctx, email, ""); err != nil {
		return nil, err
	}

	user := &domain.User{Email: email}
	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// Lost a race with another signup; the latest claimant wins
		if err := s.claimEmail(ctx, email, ""); err != nil {
			return nil, err
		}
		err = s.userRepo.Create(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("signup started", zap.String("user_id", user.ID))

	return s.issueCode(ctx, domain.OTPPurposeSignup, signupData(email), email, mailer.SignupCode)
}

// CompleteSignup verifies the code and persists the password, marking the
// user verified. If the pending user was evicted meanwhile it is recreated.
func (s *authService) CompleteSignup(ctx context.Context, email, password, token, code string) (*domain.User, error) {
	email, err := normalizeEmail("email", email)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Validate(password) {
		return nil, domain.ErrInvalidPassword
	}

	if err := s.verifyCode(ctx, signupData(email), token, code); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if existing != nil && existing.Verified {
		return nil, domain.ErrEmailInUse
	}

	passwordHash, err := s.passwords.HashAndValidate(password)
	if err != nil {
		return nil, err
	}

	if err := s.consumeCode(ctx, token); err != nil {
		return nil, err
	}

	verified := true
	var user *domain.User
	if existing != nil {
		user, err = s.userRepo.Update(ctx, existing.ID, domain.UserPatch{PasswordHash: &passwordHash, Verified: &verified})
	}
	if existing == nil || errors.Is(err, repository.ErrNotFound) {
		user = &domain.User{Email: email, PasswordHash: passwordHash, Verified: true}
		err = s.userRepo.Create(ctx, user)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to complete signup: %w", err)
	}

	s.logger.Info("signup completed", zap.String("user_id", user.ID))

	return user, nil
}

// Login authenticates a user and opens a new session for device
func (s *authService) Login(ctx context.Context, email, password string, device domain.Device) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.Verify(password, s.dummyHash)
			s.metrics.Login(ctx, "failure")
			return nil, domain.ErrInvalidLogin
		}
		s.metrics.Login(ctx, "error")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.passwords.Verify(password, s.loginHash(user)) {
		s.metrics.Login(ctx, "failure")
		return nil, domain.ErrInvalidLogin
	}

	refreshToken, err := s.sessions.MintRefreshToken(ctx, user.ID, device)
	if err != nil {
		s.metrics.Login(ctx, "error")
		return nil, err
	}

	accessToken, err := s.sessions.IssueAccessToken(user.ID)
	if err != nil {
		s.metrics.Login(ctx, "error")
		return nil, err
	}

	s.metrics.Login(ctx, "success")

	return &domain.TokenPair{
		AccessToken:  accessToken.Token,
		RefreshToken: refreshToken,
		TokenType:    accessToken.TokenType,
		ExpiresIn:    accessToken.ExpiresIn,
	}, nil
}

// GetAccessToken redeems a refresh token for a new access token
func (s *authService) GetAccessToken(ctx context.Context, refreshToken string, device domain.Device) (*domain.AccessToken, error) {
	return s.sessions.RedeemForAccessToken(ctx, refreshToken, device)
}

// Logout revokes the presented refresh token. A non-empty userID limits the
// revocation to that user's tokens.
func (s *authService) Logout(ctx context.Context, refreshToken, userID string) error {
	return s.sessions.RevokeByTokenValue(ctx, refreshToken, userID)
}

// RevokeSession revokes one of the user's own sessions by id
func (s *authService) RevokeSession(ctx context.Context, userID, tokenID string) error {
	return s.sessions.RevokeByTokenID(ctx, userID, tokenID)
}

// ListSessions lists the user's sessions, most recently used first
func (s *authService) ListSessions(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	return s.sessions.ListSessions(ctx, userID)
}

// GetUser gets user information
func (s *authService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

// ChangePassword replaces the user's password. With revokeRefreshTokens set
// every session is revoked and a replacement for the caller is returned.
func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string, revokeRefreshTokens bool, device domain.Device) (string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if !s.passwords.Verify(oldPassword, user.PasswordHash) {
		return "", domain.ErrWrongPassword
	}

	passwordHash, err := s.passwords.HashAndValidate(newPassword)
	if err != nil {
		return "", err
	}

	if _, err := s.userRepo.Update(ctx, userID, domain.UserPatch{PasswordHash: &passwordHash}); err != nil {
		return "", s.userUpdateError(err)
	}

	s.logger.Info("password changed",
		zap.String("user_id", userID),
		zap.Bool("revoke_sessions", revokeRefreshTokens),
	)

	if !revokeRefreshTokens {
		return "", nil
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return "", err
	}
	return s.sessions.MintRefreshToken(ctx, userID, device)
}

// BeginEmailChange checks the password and mails a code to the new address
func (s *authService) BeginEmailChange(ctx context.Context, userID, password, newEmail string) (*domain.VerificationTicket, error) {
	newEmail, err := normalizeEmail("email", newEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, domain.ErrWrongPassword
	}

	if user.Email == newEmail {
		return nil, domain.ErrEmailAlreadySet
	}

	if err := s.claimEmail(ctx, newEmail, userID); err != nil {
		return nil, err
	}

	return s.issueCode(ctx, domain.OTPPurposeEmailChange, emailChangeData(newEmail, userID), newEmail, mailer.EmailChangeCode)
}

// CompleteEmailChange verifies the code and switches the user to the new,
// verified address. Claims on the address are re-checked since begin.
func (s *authService) CompleteEmailChange(ctx context.Context, userID, newEmail, token, code string) (*domain.User, error) {
	newEmail, err := normalizeEmail("email", newEmail)
	if err != nil {
		return nil, err
	}

	if err := s.verifyCode(ctx, emailChangeData(newEmail, userID), token, code); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Email == newEmail && user.Verified {
		return nil, domain.ErrAlreadyVerified
	}

	if err := s.consumeCode(ctx, token); err != nil {
		return nil, err
	}

	if err := s.claimEmail(ctx, newEmail, userID); err != nil {
		return nil, err
	}

	verified := true
	updated, err := s.userRepo.Update(ctx, userID, domain.UserPatch{Email: &newEmail, Verified: &verified})
	if err != nil {
		return nil, s.userUpdateError(err)
	}

	s.logger.Info("email changed", zap.String("user_id", userID))

	return updated, nil
}

// BeginPasswordReset mails a reset code to a known address
func (s *authService) BeginPasswordReset(ctx context.Context, email string) (*domain.VerificationTicket, error) {
	email, err := normalizeEmail("email", email)
	if err != nil {
		return nil, err
	}

	if _, err := s.getResettableUser(ctx, email); err != nil {
		return nil, err
	}

	return s.issueCode(ctx, domain.OTPPurposePasswordReset, passwordResetData(email), email, mailer.PasswordResetCode)
}

// CompletePasswordReset verifies the code, sets the new password and revokes
// every session of the user
func (s *authService) CompletePasswordReset(ctx context.Context, email, newPassword, token, code string) error {
	email, err := normalizeEmail("email", email)
	if err != nil {
		return err
	}

	if !s.passwords.Validate(newPassword) {
		return domain.ErrInvalidPassword
	}

	if err := s.verifyCode(ctx, passwordResetData(email), token, code); err != nil {
		return err
	}

	user, err := s.getResettableUser(ctx, email)
	if err != nil {
		return err
	}

	if err := s.consumeCode(ctx, token); err != nil {
		return err
	}

	return s.resetPassword(ctx, user.ID, newPassword)
}

// RequestPasswordResetLink mails redirectURL with a reset token appended.
// The token is keyed by the current password hash, so it stops verifying
// as soon as the password changes.
func (s *authService) RequestPasswordResetLink(ctx context.Context, email, redirectURL string) error {
	if err := utils.EnsureRedirectURL("redirectUrl", redirectURL); err != nil {
		return err
	}

	email, err := normalizeEmail("email", email)
	if err != nil {
		return err
	}

	user, err := s.getResettableUser(ctx, email)
	if err != nil {
		return err
	}

	resetToken, err := utils.SignToken(map[string]any{
		"uid": user.ID,
		"typ": resetTokenType,
	}, s.resetKey(user), s.verification.ResetLinkExpiry)
	if err != nil {
		return err
	}

	link, _ := url.Parse(redirectURL)
	query := link.Query()
	query.Set(resetQueryParam, resetToken)
	link.RawQuery = query.Encode()

	msg, err := mailer.PasswordResetLink(email, link.String(), s.verification.ResetLinkExpiry)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

// ResetPassword sets a new password using a token from a reset link
func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := utils.DecodeUnverified(resetToken)
	if err != nil {
		return domain.ErrInvalidToken
	}

	userID, _ := claims["uid"].(string)
	if userID == "" || claims["typ"] != resetTokenType {
		return domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return domain.ErrInvalidToken
	}
	if _, err := utils.VerifyToken(resetToken, s.resetKey(user)); err != nil {
		return domain.ErrInvalidToken
	}

	return s.resetPassword(ctx, user.ID, newPassword)
}

// ValidateAccessToken validates an access token
func (s *authService) ValidateAccessToken(_ context.Context, token string) (*domain.AccessClaims, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken
	}
	return claims, nil
}

func (s *authService) resetPassword(ctx context.Context, userID, newPassword string) error {
	passwordHash, err := s.passwords.HashAndValidate(newPassword)
	if err != nil {
		return err
	}

	verified := true
	if _, err := s.userRepo.Update(ctx, userID, domain.UserPatch{PasswordHash: &passwordHash, Verified: &verified}); err != nil {
		return s.userUpdateError(err)
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("password reset", zap.String("user_id", userID))
	return nil
}

// claimEmail makes email available to userID (empty for a new signup).
// A verified owner wins; an unverified one is evicted.
func (s *authService) claimEmail(ctx context.Context, email, userID string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check email owner: %w", err)
	}

	if existing.ID == userID {
		if existing.Verified {
			return domain.ErrAlreadyVerified
		}
		return nil
	}

	if existing.Verified {
		return domain.ErrEmailInUse
	}

	if err := s.userRepo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to evict unverified user: %w", err)
	}

	s.logger.Info("evicted unverified user",
		zap.String("evicted_user_id", existing.ID),
		zap.String("claimant_user_id", userID),
	)
	return nil
}

func (s *authService) issueCode(
	ctx context.Context,
	purpose domain.OTPPurpose,
	data, to string,
	render func(to, code string, ttl time.Duration) (mailer.Message, error),
) (*domain.VerificationTicket, error) {
	otp, err := utils.GenerateOTPAndHash(data, s.verification.OTPDigits, s.verification.OTPExpiry, s.verification.Secret)
	if err != nil {
		return nil, err
	}

	msg, err := render(to, otp.Code, s.verification.OTPExpiry)
	if err != nil {
		return nil, err
	}

	if err := s.send(ctx, msg); err != nil {
		return nil, err
	}

	s.metrics.OTPIssued(ctx, string(purpose))

	return &domain.VerificationTicket{
		Token:     otp.FullHash,
		ExpiresAt: otp.ExpiresAt,
	}, nil
}

// verifyCode checks code against token. A wrong code on a live token counts
// towards OTPMaxAttempts; the last allowed miss retires the token.
func (s *authService) verifyCode(ctx context.Context, data, token, code string) error {
	if utils.VerifyOTP(data, token, code, s.verification.Secret) {
		return nil
	}

	expiresAt, ok := utils.OTPExpiry(token)
	if !ok {
		return domain.ErrInvalidToken
	}

	// The expiry is client supplied, so the counter never outlives a real code
	ttl := min(time.Until(expiresAt), s.verification.OTPExpiry)
	burned, err := s.ledger.RecordFailure(ctx, token, ttl, s.verification.OTPMaxAttempts)
	if err != nil {
		return err
	}
	if burned {
		s.logger.Warn("one-time code retired after repeated wrong guesses")
	}
	return domain.ErrInvalidToken
}

func (s *authService) consumeCode(ctx context.Context, token string) error {
	expiresAt, ok := utils.OTPExpiry(token)
	if !ok {
		return domain.ErrInvalidToken
	}

	fresh, err := s.ledger.Consume(ctx, token, time.Until(expiresAt))
	if err != nil {
		return err
	}
	if !fresh {
		return domain.ErrInvalidToken
	}
	return nil
}

func (s *authService) send(ctx context.Context, msg mailer.Message) error {
	if err := s.mail.Send(ctx, msg); err != nil {
		s.metrics.EmailFailed(ctx, msg.Tag)
		s.logger.Error("failed to send email",
			zap.String("tag", msg.Tag),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send %s email: %w", msg.Tag, err)
	}
	return nil
}

func (s *authService) resetKey(user *domain.User) []byte {
	key := make([]byte, 0, len(s.verification.Secret)+len(user.PasswordHash))
	key = append(key, s.verification.Secret...)
	return append(key, user.PasswordHash...)
}

func (s *authService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *authService) getUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// getResettableUser finds a user whose password may be reset. Pending
// signups have no password yet and are reported as unknown.
func (s *authService) getResettableUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.HasPassword() {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// loginHash is the hash a login attempt is compared with. Pending signups
// get the placeholder so they cost the same bcrypt work and never match.
func (s *authService) loginHash(user *domain.User) string {
	if !user.HasPassword() {
		return s.dummyHash
	}
	return user.PasswordHash
}

func (s *authService) userUpdateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return domain.ErrEmailInUse
	default:
		return fmt.Errorf("failed to update user: %w", err)
	}
}

func normalizeEmail(field, email string) (string, error) {
	email = utils.SanitizeEmail(email)
	if err := utils.EnsureEmail(field, email); err != nil {
		return "", err
	}
	return email, nil
}

func signupData(email string) string {
	return email + ".signup"
}

func emailChangeData(newEmail, userID string) string {
	return newEmail + userID + ".email"
}

func passwordResetData(email string) string {
	return email + ".password"
}
