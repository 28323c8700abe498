package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/mailer"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret          = "test-access-token-secret-0123456789"
	testVerificationSecret = "test-verification-secret-9876543210"
	testDay                = 24 * time.Hour
)

var (
	testCleanup = CleanupPolicy{
		SameDeviceAfter: time.Duration(30.44 * float64(testDay)),
		AnyDeviceAfter:  time.Duration(365.2425 * float64(testDay)),
	}
	laptop = domain.Device{IP: "10.0.0.1", UserAgent: "laptop"}
	phone  = domain.Device{IP: "10.0.0.2", UserAgent: "phone"}
)

var codePattern = regexp.MustCompile(`\s(\d{6})\n`)

// captureSender records every message instead of delivering it
type captureSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (c *captureSender) Send(_ context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *captureSender) last(t *testing.T) mailer.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.messages, "no email was sent")
	return c.messages[len(c.messages)-1]
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(c.last(t).Text)
	require.Len(t, match, 2, "no code in email")
	return match[1]
}

func (c *captureSender) lastLink(t *testing.T) string {
	t.Helper()
	parts := strings.Split(c.last(t).Text, "\n\n")
	require.GreaterOrEqual(t, len(parts), 2, "no link in email")
	return parts[1]
}

type fixture struct {
	svc      AuthService
	sessions *SessionManager
	repos    *repository.Repositories
	mail     *captureSender
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, rdb := newTestRedis(t)
	repos := repository.NewMemoryRepositories()
	jwtManager := utils.NewJWTManager(testJWTSecret, 5*time.Minute)
	sessions := NewSessionManager(repos.Token, jwtManager, testCleanup, zap.NewNop(), nil)
	mail := &captureSender{}

	svc, err := NewAuthService(
		repos.User,
		sessions,
		jwtManager,
		utils.NewPasswordPolicy(6, bcrypt.MinCost),
		mail,
		NewCodeLedger(rdb),
		VerificationSettings{
			Secret:          []byte(testVerificationSecret),
			OTPDigits:       6,
			OTPExpiry:       15 * time.Minute,
			OTPMaxAttempts:  3,
			ResetLinkExpiry: 30 * time.Minute,
		},
		zap.NewNop(),
		nil,
	)
	require.NoError(t, err)

	return &fixture{svc: svc, sessions: sessions, repos: repos, mail: mail, redis: mr}
}

// signup runs both signup steps and returns the verified user
func (f *fixture) signup(t *testing.T, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()

	ticket, err := f.svc.BeginSignup(ctx, email, password)
	require.NoError(t, err)

	user, err := f.svc.CompleteSignup(ctx, email, password, ticket.Token, f.mail.lastCode(t))
	require.NoError(t, err)
	return user
}

func (f *fixture) login(t *testing.T, email, password string, device domain.Device) *domain.TokenPair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), email, password, device)
	require.NoError(t, err)
	return pair
}

func (f *fixture) seedToken(t *testing.T, userID, hash string, device domain.Device, age time.Duration) {
	t.Helper()
	lastUsed := time.Now().UTC().Add(-age)
	require.NoError(t, f.repos.Token.Create(context.Background(), &domain.RefreshToken{
		UserID:     userID,
		TokenHash:  hash,
		IP:         device.IP,
		UserAgent:  device.UserAgent,
		LastUsedAt: lastUsed,
		CreatedAt:  lastUsed,
	}))
}

func wrongCode(code string) string {
	first := (code[0]-'0'+1)%10 + '0'
	return string(first) + code[1:]
}
