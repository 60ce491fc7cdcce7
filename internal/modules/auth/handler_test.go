package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/walpay/core/internal/middleware"
	"github.com/walpay/core/internal/models"
	"github.com/walpay/core/internal/modules/auth/otp"
	"github.com/walpay/core/internal/modules/auth/session"
	"github.com/walpay/core/internal/modules/seller"
	"github.com/walpay/core/internal/pkg/credential"
	"github.com/walpay/core/internal/store/memstore"
)

type recordingNotifier struct {
	codes map[string]string // email -> last code
}

func (r *recordingNotifier) SendOtpCode(email, code string, purpose models.OtpPurpose, expiresAt time.Time) error {
	r.codes[email] = code
	return nil
}

type testEnv struct {
	router   *gin.Engine
	notifier *recordingNotifier
	sessions *session.Service
	sellers  *seller.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memstore.New()
	notifier := &recordingNotifier{codes: map[string]string{}}
	sessions := session.NewService(mem.Sessions(), session.Config{})
	otps := otp.NewService(mem.Otps(), notifier, otp.Config{})
	sellers := seller.NewService(mem.Sellers(), mem.Payments(), mem.Transactions(), sessions, credential.NewHasher(1000), "US")
	resolver := middleware.NewResolver(sessions, mem.Sellers())

	h := NewHandler(sellers, otps, sessions, zap.NewNop())
	router := gin.New()
	h.RegisterRoutes(router.Group(""), resolver.Auth())

	return &testEnv{router: router, notifier: notifier, sessions: sessions, sellers: sellers}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

type tokensPayload struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func decodeTokens(t *testing.T, raw json.RawMessage) tokensPayload {
	t.Helper()
	var tk tokensPayload
	require.NoError(t, json.Unmarshal(raw, &tk))
	require.NotEmpty(t, tk.AccessToken)
	require.NotEmpty(t, tk.RefreshToken)
	return tk
}

func (e *testEnv) signupAndVerify(t *testing.T, email string) tokensPayload {
	t.Helper()
	w, _ := e.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": email, "password": "hunter2hunter2", "businessName": "Acme",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := e.do(t, http.MethodPost, "/auth/signup/verify", gin.H{
		"email": email, "code": e.notifier.codes[email],
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decodeTokens(t, body["tokens"])
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "New@Example.com", "password": "hunter2hunter2", "businessName": "Acme",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, body["otp_expires_at"])
	// The raw code never appears in the HTTP response.
	assert.NotContains(t, w.Body.String(), env.notifier.codes["new@example.com"])

	code := env.notifier.codes["new@example.com"]
	require.NotEmpty(t, code)

	w, body = env.do(t, http.MethodPost, "/auth/signup/verify", gin.H{
		"email": "new@example.com", "code": code,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tk := decodeTokens(t, body["tokens"])

	var sellerOut sellerResponse
	require.NoError(t, json.Unmarshal(body["seller"], &sellerOut))
	assert.Equal(t, "new@example.com", sellerOut.Email)
	assert.NotNil(t, sellerOut.VerifiedAt)

	// The minted pair authenticates.
	sess, err := env.sessions.Authenticate(t.Context(), tk.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, sess)
}

func TestSignupDuplicateVerifiedSeller(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndVerify(t, "dup@example.com")

	w, _ := env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "dup@example.com", "password": "hunter2hunter2", "businessName": "Other",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignupUnverifiedSellerCanRetry(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, "/auth/signup", gin.H{
			"email": "retry@example.com", "password": "hunter2hunter2", "businessName": "Acme",
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, _ := env.do(t, http.MethodPost, "/auth/signup/verify", gin.H{
		"email": "retry@example.com", "code": env.notifier.codes["retry@example.com"],
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupVerifyWrongCode(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "a@example.com", "password": "hunter2hunter2", "businessName": "Acme",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	wrong := "000000"
	if env.notifier.codes["a@example.com"] == wrong {
		wrong = "000001"
	}
	w, _ = env.do(t, http.MethodPost, "/auth/signup/verify", gin.H{
		"email": "a@example.com", "code": wrong,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndVerify(t, "login@example.com")

	t.Run("success", func(t *testing.T) {
		w, body := env.do(t, http.MethodPost, "/auth/login", gin.H{
			"email": "login@example.com", "password": "hunter2hunter2",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decodeTokens(t, body["tokens"])
	})

	t.Run("wrong password is uniform 401", func(t *testing.T) {
		w, _ := env.do(t, http.MethodPost, "/auth/login", gin.H{
			"email": "login@example.com", "password": "wrong-password",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown email is the same 401", func(t *testing.T) {
		w, _ := env.do(t, http.MethodPost, "/auth/login", gin.H{
			"email": "ghost@example.com", "password": "hunter2hunter2",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoginUnverifiedSeller(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "pending@example.com", "password": "hunter2hunter2", "businessName": "Acme",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "pending@example.com", "password": "hunter2hunter2",
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOtpLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndVerify(t, "otp@example.com")

	w, _ := env.do(t, http.MethodPost, "/auth/login/otp/request", gin.H{
		"email": "otp@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := env.do(t, http.MethodPost, "/auth/login/otp/verify", gin.H{
		"email": "otp@example.com", "code": env.notifier.codes["otp@example.com"],
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeTokens(t, body["tokens"])

	// Replaying the consumed code fails.
	w, _ = env.do(t, http.MethodPost, "/auth/login/otp/verify", gin.H{
		"email": "otp@example.com", "code": env.notifier.codes["otp@example.com"],
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	tk := env.signupAndVerify(t, "reset@example.com")

	w, _ := env.do(t, http.MethodPost, "/auth/password/request", gin.H{
		"email": "reset@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/auth/password/reset", gin.H{
		"email": "reset@example.com", "code": env.notifier.codes["reset@example.com"],
		"newPassword": "correct-horse-battery",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Old password dead, new one works.
	w, _ = env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "reset@example.com", "password": "hunter2hunter2",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "reset@example.com", "password": "correct-horse-battery",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The reset revoked the pre-existing session.
	sess, err := env.sessions.Authenticate(t.Context(), tk.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	tk := env.signupAndVerify(t, "refresh@example.com")

	w, body := env.do(t, http.MethodPost, "/auth/refresh", gin.H{
		"refreshToken": tk.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeTokens(t, body["tokens"])
	assert.NotEqual(t, tk.RefreshToken, rotated.RefreshToken)

	// The consumed refresh token collapses to a uniform 401.
	w, _ = env.do(t, http.MethodPost, "/auth/refresh", gin.H{
		"refreshToken": tk.RefreshToken,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	tk := env.signupAndVerify(t, "logout@example.com")
	authz := map[string]string{"Authorization": "Bearer " + tk.AccessToken}

	w, _ := env.do(t, http.MethodPost, "/auth/logout", nil, authz)
	require.Equal(t, http.StatusOK, w.Code)

	sess, err := env.sessions.Authenticate(t.Context(), tk.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// The dead token can no longer reach the endpoint.
	w, _ = env.do(t, http.MethodPost, "/auth/logout", nil, authz)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResendOtpValidation(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndVerify(t, "resend@example.com")

	w, _ := env.do(t, http.MethodPost, "/auth/otp/resend", gin.H{
		"email": "resend@example.com", "purpose": "bogus",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/auth/otp/resend", gin.H{
		"email": "resend@example.com", "purpose": "login",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, "/auth/otp/resend", gin.H{
		"email": "ghost@example.com", "purpose": "login",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
