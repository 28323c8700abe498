package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/identity-service/internal/config"
	"github.com/prperemyshlev/identity-service/internal/mailer"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/pkg/database"
	"github.com/prperemyshlev/identity-service/pkg/observability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

var codePattern = regexp.MustCompile(`\s(\d{6})\n`)

type outbox struct {
	mu       sync.Mutex
	messages []mailer.Message
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) last() mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return mailer.Message{}
	}
	return o.messages[len(o.messages)-1]
}

type testInfra struct {
	store          Store
	repos          *repository.Repositories
	redis          *database.Redis
	mail           *outbox
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

func (i *testInfra) Store() Store                            { return i.store }
func (i *testInfra) Repositories() *repository.Repositories { return i.repos }
func (i *testInfra) Redis() *database.Redis                 { return i.redis }
func (i *testInfra) Mailer() mailer.Sender                  { return i.mail }
func (i *testInfra) Logger() *zap.Logger                    { return zap.NewNop() }
func (i *testInfra) MetricsHandler() http.Handler           { return i.metricsHandler }
func (i *testInfra) MeterProvider() *metric.MeterProvider   { return i.meterProvider }
func (i *testInfra) Shutdown(context.Context) error         { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{Env: "test"}
	cfg.Store.Driver = config.StoreDriverMemory
	cfg.JWT.Secret = "test-access-token-secret-0123456789"
	cfg.JWT.AccessTokenExpiry.Duration = 5 * time.Minute
	cfg.Verification.Secret = "test-verification-secret-9876543210"
	cfg.Verification.OTPDigits = 6
	cfg.Verification.OTPExpiry.Duration = 15 * time.Minute
	cfg.Verification.OTPMaxAttempts = 5
	cfg.Verification.ResetLinkExpiry.Duration = 30 * time.Minute
	cfg.Session.CleanupSameDeviceAfter.Duration = time.Duration(30.44 * 24 * float64(time.Hour))
	cfg.Session.CleanupAnyDeviceAfter.Duration = time.Duration(365.2425 * 24 * float64(time.Hour))
	cfg.Security.BCryptCost = 4
	cfg.Security.PasswordMinLength = 6
	cfg.Security.RateLimitRequests = 100
	cfg.Security.RateLimitWindow.Duration = time.Minute
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}
	return cfg
}

type AppSuite struct {
	suite.Suite
	redis  *miniredis.Miniredis
	infra  *testInfra
	// breakRedis makes every later Redis call fail
	breakRedis func()
	cfg    *config.Config
	router *gin.Engine
}

func TestAppSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	s.redis = miniredis.RunT(s.T())

	meterProvider, metricsHandler, err := observability.InitTelemetry(observability.ServiceInfo{Name: serviceName, Version: "test", Environment: "test"})
	s.Require().NoError(err)

	s.infra = &testInfra{
		store:          memoryStore{},
		repos:          repository.NewMemoryRepositories(),
		redis:          &database.Redis{Client: redis.NewClient(&redis.Options{Addr: s.redis.Addr()})},
		mail:           &outbox{},
		metricsHandler: metricsHandler,
		meterProvider:  meterProvider,
	}
	s.breakRedis = s.redis.Close
	s.cfg = testConfig()
	s.buildRouter()
}

func (s *AppSuite) TearDownTest() {
	_ = s.infra.redis.Close()
	_ = s.infra.meterProvider.Shutdown(context.Background())
}

func (s *AppSuite) buildRouter() {
	application, err := NewApp(s.infra, s.cfg)
	s.Require().NoError(err)
	s.router = application.Router()
}

func (s *AppSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return s.doWithHeader(method, path, header, body)
}

func (s *AppSuite) doWithHeader(method, path string, header http.Header, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "suite-agent")
	req.RemoteAddr = "192.0.2.10:40000"
	for key, values := range header {
		req.Header[key] = values
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// wrongCode returns a code of the same length that differs in the first digit
func wrongCode(code string) string {
	return string((code[0]-'0'+1)%10+'0') + code[1:]
}

func (s *AppSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *AppSuite) lastCode() string {
	match := codePattern.FindStringSubmatch(s.infra.mail.last().Text)
	s.Require().Len(match, 2, "no code in email")
	return match[1]
}

func (s *AppSuite) signup(email, password string) {
	rec := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	token := s.decode(rec)["token"].(string)

	rec = s.do(http.MethodPost, "/api/v1/auth/signup/complete", "", map[string]string{
		"email": email, "password": password, "token": token, "code": s.lastCode(),
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

func (s *AppSuite) login(email, password string) (access, refresh string) {
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	body := s.decode(rec)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func (s *AppSuite) TestSignupAndLogin() {
	rec := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "a@b.com", "password": "zoom4321"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	body := s.decode(rec)
	s.NotEmpty(body["token"])
	s.NotEmpty(body["expires_at"])

	code := s.lastCode()
	wrong := wrongCode(code)
	rec = s.do(http.MethodPost, "/api/v1/auth/signup/complete", "", map[string]string{
		"email": "a@b.com", "password": "zoom4321", "token": body["token"].(string), "code": wrong,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_TOKEN", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/signup/complete", "", map[string]string{
		"email": "a@b.com", "password": "zoom4321", "token": body["token"].(string), "code": code,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(true, s.decode(rec)["verified"])

	access, refresh := s.login("a@b.com", "zoom4321")
	s.NotEmpty(access)
	s.Len(refresh, 128)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com", "password": "wrong4321"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_LOGIN", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nobody@b.com", "password": "zoom4321"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_LOGIN", s.decode(rec)["code"])
}

func (s *AppSuite) TestValidationErrors() {
	rec := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "whoops", "password": "zoom4321"})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	body := s.decode(rec)
	s.Equal("VALIDATION_ERROR", body["code"])
	s.Contains(body["details"], "email")

	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com"})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Contains(s.decode(rec)["details"], "password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	s.router.ServeHTTP(raw, req)
	s.Equal(http.StatusUnprocessableEntity, raw.Code)
}

func (s *AppSuite) TestTokenAndSessions() {
	s.signup("a@b.com", "zoom4321")
	_, refresh := s.login("a@b.com", "zoom4321")

	rec := s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"refresh_token": refresh})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	access := s.decode(rec)["access_token"].(string)

	rec = s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"refresh_token": "unknown"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("INVALID_REFRESH_TOKEN", s.decode(rec)["code"])

	rec = s.do(http.MethodGet, "/api/v1/me", access, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	me := s.decode(rec)
	s.Equal("a@b.com", me["email"])
	logins := me["logins"].([]any)
	s.Require().Len(logins, 1)
	login := logins[0].(map[string]any)
	s.Equal("192.0.2.10", login["ip"])
	s.Equal("suite-agent", login["user_agent"])

	rec = s.do(http.MethodGet, "/api/v1/me/logins", access, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/me/logins/"+login["id"].(string), access, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/me/logins/"+login["id"].(string), access, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("ITEM_NOT_FOUND", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"refresh_token": refresh})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AppSuite) TestProtectedRoutesRequireAccessToken() {
	for _, token := range []string{"", "garbage"} {
		rec := s.do(http.MethodGet, "/api/v1/me", token, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Equal("INVALID_ACCESS_TOKEN", s.decode(rec)["code"])
	}

	s.signup("a@b.com", "zoom4321")
	_, refresh := s.login("a@b.com", "zoom4321")

	rec := s.do(http.MethodGet, "/api/v1/me", refresh, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AppSuite) TestLogoutRestrictedToCaller() {
	s.signup("alice@b.com", "zoom4321")
	s.signup("bob@b.com", "zoom4321")
	_, aliceRefresh := s.login("alice@b.com", "zoom4321")
	bobAccess, _ := s.login("bob@b.com", "zoom4321")

	rec := s.do(http.MethodPost, "/api/v1/auth/logout", bobAccess, map[string]string{"refresh_token": aliceRefresh})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("ITEM_NOT_FOUND", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/logout", "", map[string]string{"refresh_token": aliceRefresh})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/logout", "garbage", map[string]string{"refresh_token": aliceRefresh})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AppSuite) TestChangePasswordRevokesLogins() {
	s.signup("a@b.com", "zoom4321")
	access, first := s.login("a@b.com", "zoom4321")
	_, second := s.login("a@b.com", "zoom4321")

	rec := s.do(http.MethodPut, "/api/v1/me/password", access, map[string]any{
		"old_password": "wrong4321", "new_password": "fresh4321", "revoke_refresh_tokens": true,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("WRONG_PASSWORD", s.decode(rec)["code"])

	rec = s.do(http.MethodPut, "/api/v1/me/password", access, map[string]any{
		"old_password": "zoom4321", "new_password": "fresh4321", "revoke_refresh_tokens": true,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	replacement := s.decode(rec)["refresh_token"].(string)

	for _, old := range []string{first, second} {
		rec = s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"refresh_token": old})
		s.Equal(http.StatusUnauthorized, rec.Code)
	}
	rec = s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"refresh_token": replacement})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/me/logins", access, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var logins []any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &logins))
	s.Len(logins, 1)
}

func (s *AppSuite) TestEmailChange() {
	s.signup("alice@b.com", "zoom4321")
	s.signup("bob@b.com", "zoom4321")
	access, _ := s.login("alice@b.com", "zoom4321")

	rec := s.do(http.MethodPost, "/api/v1/me/email", access, map[string]string{"password": "zoom4321", "new_email": "bob@b.com"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("EMAIL_IN_USE", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "carol@b.com", "password": "zoom4321"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/me/email", access, map[string]string{"password": "zoom4321", "new_email": "carol@b.com"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	token := s.decode(rec)["token"].(string)

	rec = s.do(http.MethodPost, "/api/v1/me/email/complete", access, map[string]string{
		"new_email": "carol@b.com", "token": token, "code": s.lastCode(),
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("carol@b.com", s.decode(rec)["email"])

	s.login("carol@b.com", "zoom4321")
}

func (s *AppSuite) TestEmailChangeCodeRetiredAfterWrongGuesses() {
	s.signup("alice@b.com", "zoom4321")
	access, _ := s.login("alice@b.com", "zoom4321")

	rec := s.do(http.MethodPost, "/api/v1/me/email", access, map[string]string{"password": "zoom4321", "new_email": "carol@b.com"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	token := s.decode(rec)["token"].(string)
	code := s.lastCode()

	for range s.cfg.Verification.OTPMaxAttempts {
		rec = s.do(http.MethodPost, "/api/v1/me/email/complete", access, map[string]string{
			"new_email": "carol@b.com", "token": token, "code": wrongCode(code),
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	}

	rec = s.do(http.MethodPost, "/api/v1/me/email/complete", access, map[string]string{
		"new_email": "carol@b.com", "token": token, "code": code,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_TOKEN", s.decode(rec)["code"])

	rec = s.do(http.MethodGet, "/api/v1/me", access, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("alice@b.com", s.decode(rec)["email"])
}

func (s *AppSuite) TestPasswordResetFlows() {
	s.signup("a@b.com", "zoom4321")

	rec := s.do(http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{"email": "nobody@b.com"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("USER_NOT_FOUND", s.decode(rec)["code"])

	rec = s.do(http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{"email": "a@b.com"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	token := s.decode(rec)["token"].(string)

	rec = s.do(http.MethodPost, "/api/v1/auth/password-reset/complete", "", map[string]string{
		"email": "a@b.com", "new_password": "fresh4321", "token": token, "code": s.lastCode(),
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.login("a@b.com", "fresh4321")

	rec = s.do(http.MethodPost, "/api/v1/auth/password-reset/link", "", map[string]string{
		"email": "a@b.com", "redirect_url": "https://app.example.com/reset",
	})
	s.Require().Equal(http.StatusAccepted, rec.Code, rec.Body.String())

	parts := strings.Split(s.infra.mail.last().Text, "\n\n")
	s.Require().GreaterOrEqual(len(parts), 2)
	link, err := url.Parse(parts[1])
	s.Require().NoError(err)
	resetToken := link.Query().Get("passwordResetToken")

	rec = s.do(http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"password_reset_token": resetToken, "new_password": "again4321",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/auth/password-reset/confirm", "", map[string]string{
		"password_reset_token": resetToken, "new_password": "third4321",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("INVALID_TOKEN", s.decode(rec)["code"])

	s.login("a@b.com", "again4321")
}

func (s *AppSuite) TestRateLimit() {
	s.cfg.Security.RateLimitRequests = 2
	s.buildRouter()

	for range 2 {
		rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com", "password": "zoom4321"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com", "password": "zoom4321"})
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("TOO_MANY_REQUESTS", s.decode(rec)["code"])
	s.Equal("2", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("Retry-After"))

	s.breakRedis()
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com", "password": "zoom4321"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AppSuite) TestRateLimitIgnoresForwardedForFromClients() {
	s.signup("a@b.com", "zoom4321")
	rec := s.do(http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{"email": "a@b.com"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	token := s.decode(rec)["token"].(string)
	wrong := wrongCode(s.lastCode())

	s.Require().NoError(s.infra.redis.Client.FlushDB(context.Background()).Err())
	s.cfg.Security.RateLimitRequests = 2
	s.buildRouter()

	statuses := map[int]int{}
	for i := range 6 {
		header := http.Header{"X-Forwarded-For": {fmt.Sprintf("203.0.113.%d", i+1)}}
		rec := s.doWithHeader(http.MethodPost, "/api/v1/auth/password-reset/complete", header, map[string]string{
			"email": "a@b.com", "new_password": "fresh4321", "token": token, "code": wrong,
		})
		statuses[rec.Code]++
	}

	s.Equal(map[int]int{http.StatusBadRequest: 2, http.StatusTooManyRequests: 4}, statuses)
}

func (s *AppSuite) TestRateLimitHonoursTrustedProxy() {
	s.cfg.Security.RateLimitRequests = 2
	s.cfg.Server.TrustedProxies = []string{"192.0.2.0/24"}
	s.buildRouter()

	for i := range 4 {
		header := http.Header{"X-Forwarded-For": {fmt.Sprintf("203.0.113.%d", i+1)}}
		rec := s.doWithHeader(http.MethodPost, "/api/v1/auth/login", header, map[string]string{"email": "a@b.com", "password": "zoom4321"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	}
}

func (s *AppSuite) TestSessionDeviceUsesSocketAddress() {
	s.signup("a@b.com", "zoom4321")

	header := http.Header{"X-Forwarded-For": {"203.0.113.77"}}
	rec := s.doWithHeader(http.MethodPost, "/api/v1/auth/login", header, map[string]string{"email": "a@b.com", "password": "zoom4321"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	access := s.decode(rec)["access_token"].(string)

	rec = s.do(http.MethodGet, "/api/v1/me/logins", access, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), `"ip":"192.0.2.10"`)
	s.NotContains(rec.Body.String(), "203.0.113.77")
}

func (s *AppSuite) TestInvalidTrustedProxies() {
	s.cfg.Server.TrustedProxies = []string{"not-an-ip"}
	_, err := NewApp(s.infra, s.cfg)
	s.Error(err)
}

func (s *AppSuite) TestHealthAndMetrics() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("pass", s.decode(rec)["status"])

	s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@b.com", "password": "zoom4321"})

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "auth_logins")

	s.breakRedis()
	rec = s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	body := s.decode(rec)
	s.Equal("fail", body["status"])
	s.Equal(map[string]any{"store": "pass", "redis": "fail"}, body["checks"])
}

func (s *AppSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Empty(rec.Header().Get("Access-Control-Allow-Origin"))
}
