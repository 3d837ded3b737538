package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"paygate/internal/app"
	"paygate/internal/store"
	"paygate/internal/usertoken"
)

func newJWKSVerifier(t *testing.T) (*usertoken.Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{
					"kty": "RSA",
					"kid": "kid-1",
					"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
				},
			},
		})
	}))
	t.Cleanup(jwksServer.Close)

	verifier, err := usertoken.NewVerifier(usertoken.Config{
		JWKSURL:  jwksServer.URL,
		Issuer:   "paygate-auth",
		Audience: "paygate-api",
		Leeway:   30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier, key
}

func mustSignUserToken(t *testing.T, key *rsa.PrivateKey, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "paygate-auth",
		Audience:  jwt.ClaimStrings{"paygate-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Second)),
	})
	token.Header["kid"] = "kid-1"
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func jsonBody(t *testing.T, payload any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func TestMutatingRoutesRequireValidToken(t *testing.T) {
	verifier, signer := newJWKSVerifier(t)
	validToken := mustSignUserToken(t, signer, "user-1")
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate invalid key: %v", err)
	}
	invalidToken := mustSignUserToken(t, otherKey, "user-1")

	a := app.New(app.Config{Store: store.NewMemoryStore()})
	s, err := New(Config{App: a, TokenVerifier: verifier})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	post := func(token string) int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/collections",
			jsonBody(t, map[string]any{"userId": "u", "title": "t", "accessType": "permanent"}))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := post(""); status != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", status)
	}
	if status := post(invalidToken); status != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d, want 401", status)
	}
	if status := post(validToken); status != http.StatusCreated {
		t.Fatalf("valid token status = %d, want 201", status)
	}

	// Reads stay public even with a verifier configured.
	resp, err := http.Get(srv.URL + "/api/collections/published")
	if err != nil {
		t.Fatalf("get published: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public read status = %d, want 200", resp.StatusCode)
	}
}

func TestPurchaseRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	a := app.New(app.Config{Store: store.NewMemoryStore()})
	s, err := New(Config{
		App:                        a,
		RedisAddr:                  redis.Addr(),
		PurchaseRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c := createCollection(t, srv, "permanent", 0)
	body := map[string]any{"userId": "buyer-1", "collectionId": c.ID}

	for i := 0; i < 2; i++ {
		if status := doJSON(t, http.MethodPost, srv.URL+"/api/purchases", body, nil); status != http.StatusCreated {
			t.Fatalf("purchase %d status = %d, want 201", i, status)
		}
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/purchases", body, nil); status != http.StatusTooManyRequests {
		t.Fatalf("throttled purchase status = %d, want 429", status)
	}
}
