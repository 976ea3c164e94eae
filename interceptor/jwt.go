package interceptor

import (
	"crypto/ecdsa"
	"crypto/rsa"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/httpware/fetch"
)

// SigningMethod names a supported JWT signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

// JWTConfig configures the tokens minted by a JWTSigner.
type JWTConfig struct {
	// Secret is the HMAC signing key (required for HS* methods).
	Secret string
	// PrivateKey is the RSA or ECDSA private key (required for RS*/ES* methods).
	PrivateKey any
	// Method is the signing algorithm (default: HS256).
	Method SigningMethod
	// Issuer is the "iss" claim (optional).
	Issuer string
	// Subject is the "sub" claim (optional).
	Subject string
	// Audience is the "aud" claim (optional).
	Audience []string
	// TTL is the token lifetime (default: 5m).
	TTL time.Duration
	// Claims adds custom claims derived from the outgoing request.
	Claims func(*http.Request) map[string]any
}

// ApplyDefaults fills in zero-value fields.
func (c *JWTConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

// Validate checks the key material against the signing method.
func (c *JWTConfig) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return stderrors.New("jwt: secret is required for HMAC signing methods")
		}
	case RS256, RS384, RS512:
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return stderrors.New("jwt: private key must be *rsa.PrivateKey for RSA signing methods")
		}
	case ES256, ES384, ES512:
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return stderrors.New("jwt: private key must be *ecdsa.PrivateKey for ECDSA signing methods")
		}
	default:
		return stderrors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	return nil
}

func (c *JWTConfig) signingMethod() gojwt.SigningMethod {
	if m := gojwt.GetSigningMethod(string(c.Method)); m != nil {
		return m
	}
	return gojwt.SigningMethodHS256
}

func (c *JWTConfig) signKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}

// JWTSigner is an interceptor that signs a short-lived token for every
// call and sends it as a bearer token.
type JWTSigner struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTSigner validates cfg and returns a signer.
func NewJWTSigner(cfg JWTConfig) (*JWTSigner, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &JWTSigner{cfg: cfg, now: time.Now}, nil
}

// Sign mints a token for req. req may be nil when no custom claims are
// configured.
func (s *JWTSigner) Sign(req *http.Request) (string, error) {
	now := s.now()
	claims := gojwt.MapClaims{
		"iat": gojwt.NewNumericDate(now),
		"nbf": gojwt.NewNumericDate(now),
		"exp": gojwt.NewNumericDate(now.Add(s.cfg.TTL)),
		"jti": uuid.NewString(),
	}
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if s.cfg.Subject != "" {
		claims["sub"] = s.cfg.Subject
	}
	if len(s.cfg.Audience) > 0 {
		claims["aud"] = s.cfg.Audience
	}
	if s.cfg.Claims != nil && req != nil {
		for k, v := range s.cfg.Claims(req) {
			claims[k] = v
		}
	}

	signed, err := gojwt.NewWithClaims(s.cfg.signingMethod(), claims).SignedString(s.cfg.signKey())
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Intercept sets the Authorization header to a freshly signed token.
func (s *JWTSigner) Intercept(c *fetch.Context, next fetch.Next) (*http.Response, error) {
	token, err := s.Sign(c.Request)
	if err != nil {
		return nil, err
	}
	r := cloneRequest(c.Request)
	r.Header.Set("Authorization", "Bearer "+token)
	c.Request = r
	return next()
}
