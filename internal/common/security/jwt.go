package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	claimUserID      = "uid"
	claimFingerprint = "fpr"
)

// TokenSubject is what gets bound into an issued token.
type TokenSubject struct {
	Username    string
	UserID      string
	Fingerprint string
}

type IssuedToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenClaims struct {
	Subject     string
	UserID      string
	Fingerprint string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type VerifyStatus int

const (
	StatusOK VerifyStatus = iota
	StatusMalformed
	StatusInvalidSignature
	StatusExpired
)

func (s VerifyStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMalformed:
		return "malformed"
	case StatusInvalidSignature:
		return "invalid_signature"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerifyResult carries the decoded claims only when Status is StatusOK.
type VerifyResult struct {
	Status VerifyStatus
	Claims TokenClaims
}

func (r VerifyResult) OK() bool { return r.Status == StatusOK }

// TokenCodec issues and verifies HS256 identity tokens. The secret is fixed
// at construction; replacing it invalidates every token issued before.
type TokenCodec struct {
	auth   *jwtauth.JWTAuth
	parser *jwt.Parser
	ttl    time.Duration
	now    func() time.Time
}

type CodecOption func(*TokenCodec)

// WithClock overrides the issuance clock.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(secret []byte, ttl time.Duration, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		auth:   jwtauth.New("HS256", secret, nil),
		parser: jwt.NewParser(),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TokenCodec) Issue(s TokenSubject) (IssuedToken, error) {
	if s.Username == "" || s.Fingerprint == "" {
		return IssuedToken{}, errors.New("token subject requires username and fingerprint")
	}

	now := c.now().UTC()
	exp := now.Add(c.ttl)
	claims := jwt.MapClaims{
		"sub":            s.Username,
		claimUserID:      s.UserID,
		claimFingerprint: s.Fingerprint,
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, exp)

	_, tokenString, err := c.auth.Encode(claims)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Value:     tokenString,
		IssuedAt:  time.Unix(now.Unix(), 0).UTC(),
		ExpiresAt: time.Unix(exp.Unix(), 0).UTC(),
	}, nil
}

// Verify never fails loudly: every problem is reported through Status.
func (c *TokenCodec) Verify(raw string) VerifyResult {
	if _, _, err := c.parser.ParseUnverified(raw, jwt.MapClaims{}); err != nil {
		return VerifyResult{Status: StatusMalformed}
	}

	tok, err := jwtauth.VerifyToken(c.auth, raw)
	if err != nil {
		if errors.Is(err, jwtauth.ErrExpired) {
			return VerifyResult{Status: StatusExpired}
		}
		return VerifyResult{Status: StatusInvalidSignature}
	}

	claims := TokenClaims{
		Subject:   tok.Subject(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}
	if v, ok := tok.Get(claimUserID); ok {
		claims.UserID, _ = v.(string)
	}
	if v, ok := tok.Get(claimFingerprint); ok {
		claims.Fingerprint, _ = v.(string)
	}
	if claims.Subject == "" || claims.Fingerprint == "" || claims.ExpiresAt.IsZero() {
		return VerifyResult{Status: StatusMalformed}
	}
	return VerifyResult{Status: StatusOK, Claims: claims}
}
