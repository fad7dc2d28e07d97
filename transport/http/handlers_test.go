package http

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sparksclub/walletauth/adapters/signature"
	"github.com/sparksclub/walletauth/adapters/store"
	"github.com/sparksclub/walletauth/adapters/tokenizer"
	"github.com/sparksclub/walletauth/adapters/users"
	"github.com/sparksclub/walletauth/internal/logging"
	"github.com/sparksclub/walletauth/internal/metrics"
	"github.com/sparksclub/walletauth/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "sparks_session"

var noncePattern = regexp.MustCompile(`^Sign in to SparksClub\n\nNonce: [0-9a-f]{64}$`)

type testWallet struct {
	address string
	key     ed25519.PrivateKey
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return testWallet{address: signature.AddressFromPublicKey(pub), key: priv}
}

func (w testWallet) sign(message string) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(w.key, []byte(message)))
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := tokenizer.GenerateKey()
	require.NoError(t, err)

	authService := service.NewAuthService(
		service.Config{AppName: "SparksClub"},
		service.Deps{
			Challenges:  store.NewMemoryChallengeStore(),
			Users:       users.NewMemoryStore(),
			Tokenizer:   tokenizer.NewJWTTokenizer(key, "SparksClub"),
			Verifier:    signature.NewEd25519Verifier(),
			Revocations: store.NewMemoryRevocationStore(),
		},
		service.WithLogger(logging.Discard()),
	)

	return SetupRouter(authService, RouterConfig{
		Cookie:  CookieConfig{Name: cookieName, Secure: true},
		Logger:  logging.Discard(),
		Metrics: metrics.New(),
	})
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requestNonce(t *testing.T, r http.Handler, w testWallet) string {
	t.Helper()
	resp := postJSON(r, "/api/auth/wallet/nonce", gin.H{"walletAddress": w.address, "walletType": "phantom"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decodeBody(t, resp)["nonce"].(string)
}

func verifyBody(w testWallet, nonce, sig string) gin.H {
	return gin.H{"walletAddress": w.address, "walletType": "phantom", "nonce": nonce, "signature": sig}
}

func TestNonceEndpoint(t *testing.T) {
	r := newTestRouter(t)
	w := newTestWallet(t)

	resp := postJSON(r, "/api/auth/wallet/nonce", gin.H{"walletAddress": w.address, "walletType": "phantom"})
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	assert.Regexp(t, noncePattern, body["nonce"])
	assert.EqualValues(t, 300, body["expiresIn"])
}

func TestNonceEndpointBadRequests(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing address", `{"walletType":"phantom"}`},
		{"missing type", `{"walletAddress":"abc"}`},
		{"unknown type", `{"walletAddress":"abc","walletType":"metamask"}`},
		{"not json", `walletAddress=abc`},
		{"wrong field type", `{"walletAddress":42,"walletType":"phantom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/wallet/nonce", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}

func TestWalletLoginEndToEnd(t *testing.T) {
	r := newTestRouter(t)
	w := newTestWallet(t)

	first := requestNonce(t, r, w)
	resp := postJSON(r, "/api/auth/wallet/verify", verifyBody(w, first, w.sign(first)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	user, _ := body["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, w.address, user["walletAddress"])
	assert.Equal(t, "phantom", user["walletType"])
	assert.NotContains(t, user, "lastLoginAt")

	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 7*24*60*60, cookies[0].MaxAge)

	// a fresh challenge does not revive the first one
	requestNonce(t, r, w)
	resp = postJSON(r, "/api/auth/wallet/verify", verifyBody(w, first, w.sign(first)))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid or expired nonce", decodeBody(t, resp)["error"])
}

func TestVerifyEndpointErrors(t *testing.T) {
	r := newTestRouter(t)
	w := newTestWallet(t)
	other := newTestWallet(t)

	resp := postJSON(r, "/api/auth/wallet/verify", verifyBody(w, "Sign in to SparksClub\n\nNonce: 00", w.sign("x")))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid or expired nonce", decodeBody(t, resp)["error"])

	nonce := requestNonce(t, r, w)
	resp = postJSON(r, "/api/auth/wallet/verify", verifyBody(w, nonce, other.sign(nonce)))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid signature", decodeBody(t, resp)["error"])

	resp = postJSON(r, "/api/auth/wallet/verify", gin.H{"walletAddress": w.address, "walletType": "phantom"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVerifyEndpointConcurrentSingleWinner(t *testing.T) {
	r := newTestRouter(t)
	w := newTestWallet(t)
	nonce := requestNonce(t, r, w)
	body := verifyBody(w, nonce, w.sign(nonce))

	const n = 2
	var wg sync.WaitGroup
	wg.Add(n)
	codes := make(chan int, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			codes <- postJSON(r, "/api/auth/wallet/verify", body).Code
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	got := map[int]int{}
	for code := range codes {
		got[code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusUnauthorized: 1}, got)
}

func TestMeAndLogout(t *testing.T) {
	r := newTestRouter(t)
	w := newTestWallet(t)

	nonce := requestNonce(t, r, w)
	resp := postJSON(r, "/api/auth/wallet/verify", verifyBody(w, nonce, w.sign(nonce)))
	require.Equal(t, http.StatusOK, resp.Code)
	token := decodeBody(t, resp)["token"].(string)

	// bearer header
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, w.address, me["walletAddress"])

	// cookie
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresSession(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sparks_auth_http_requests_total")
}
