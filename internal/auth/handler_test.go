package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/toko-erp/toko-erp/internal/auth"
	"github.com/toko-erp/toko-erp/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager, *auth.TokenManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	tokens := auth.NewTokenManager("test-jwt-secret", time.Hour)
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), sessions, tokens)
	return handler, sessions, tokens
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia-sekali"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 7, Email: "kasir@toko.local", Name: "Kasir", PasswordHash: string(hash), IsActive: true}
}

func doLogin(t *testing.T, handler *auth.Handler, sessions *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	router := newRouter(handler)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginSuccess(t *testing.T) {
	handler, sessions, _ := newHandler(t, &stubRepo{user: activeUser(t)})
	res := doLogin(t, handler, sessions, `{"email":"kasir@toko.local","password":"rahasia-sekali"}`)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"user_id":7`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sessions, _ := newHandler(t, &stubRepo{user: activeUser(t)})
	res := doLogin(t, handler, sessions, `{"email":"kasir@toko.local","password":"salah-semua"}`)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	handler, sessions, _ := newHandler(t, &stubRepo{user: user})
	res := doLogin(t, handler, sessions, `{"email":"kasir@toko.local","password":"rahasia-sekali"}`)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestTokenIssueAndVerify(t *testing.T) {
	tokens := auth.NewTokenManager("test-jwt-secret", time.Hour)
	raw, err := tokens.Issue(42, time.Now())
	require.NoError(t, err)

	userID, err := tokens.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	_, err = tokens.Verify(raw + "x")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestBearerMiddlewareResolvesActor(t *testing.T) {
	tokens := auth.NewTokenManager("test-jwt-secret", time.Hour)
	raw, err := tokens.Issue(42, time.Now())
	require.NoError(t, err)

	var gotActor int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = shared.ActorFromContext(r.Context())
	})
	mw := auth.BearerMiddleware(tokens, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	mw(next).ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, int64(42), gotActor)

	res := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	mw(next).ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
