package interceptor

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func parseToken(t *testing.T, token string, key any, method string) gojwt.MapClaims {
	t.Helper()
	claims := gojwt.MapClaims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) { return key, nil },
		gojwt.WithValidMethods([]string{method}))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return claims
}

func TestJWTSigner_HMAC(t *testing.T) {
	signer, err := NewJWTSigner(JWTConfig{
		Secret:   "s3cret",
		Issuer:   "billing",
		Subject:  "svc-billing",
		Audience: []string{"ledger"},
		Claims: func(r *http.Request) map[string]any {
			return map[string]any{"path": r.URL.Path}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	rt := &stubTransport{}
	f := newFetcher(rt, signer)
	mustFetch(t, f, "https://ledger.example.com/entries").Body.Close()

	auth := rt.lastRequest().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		t.Fatalf("expected bearer token, got %q", auth)
	}
	claims := parseToken(t, strings.TrimPrefix(auth, "Bearer "), []byte("s3cret"), "HS256")
	if claims["iss"] != "billing" || claims["sub"] != "svc-billing" || claims["path"] != "/entries" {
		t.Errorf("unexpected claims %v", claims)
	}
	if aud, _ := claims.GetAudience(); len(aud) != 1 || aud[0] != "ledger" {
		t.Errorf("unexpected audience %v", aud)
	}
	exp, _ := claims.GetExpirationTime()
	if exp == nil || time.Until(exp.Time) > 5*time.Minute || time.Until(exp.Time) < 4*time.Minute {
		t.Errorf("unexpected expiry %v", exp)
	}
}

func TestJWTSigner_UniquePerCall(t *testing.T) {
	signer, _ := NewJWTSigner(JWTConfig{Secret: "k"})
	a, _ := signer.Sign(nil)
	b, _ := signer.Sign(nil)
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestJWTSigner_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := NewJWTSigner(JWTConfig{Method: ES256, PrivateKey: key, TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	token, err := signer.Sign(nil)
	if err != nil {
		t.Fatal(err)
	}
	parseToken(t, token, &key.PublicKey, "ES256")
}

func TestJWTConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  JWTConfig
	}{
		{"missing secret", JWTConfig{Method: HS256}},
		{"wrong rsa key", JWTConfig{Method: RS256, PrivateKey: "nope"}},
		{"wrong ecdsa key", JWTConfig{Method: ES384}},
		{"unknown method", JWTConfig{Method: "none", Secret: "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewJWTSigner(tc.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
