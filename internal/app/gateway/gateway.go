// Package gateway decides whether a bearer header speaks for a valid
// identity, either in-process or by asking the identity service.
package gateway

import (
	"context"
	"strings"

	"identity_hub/internal/domain/model"
)

const bearerPrefix = "Bearer "

// Authorizer checks an Authorization header value. Implementations fail
// closed: anything other than a confirmed valid token yields Valid=false.
type Authorizer interface {
	CheckBearer(ctx context.Context, header string) model.ValidationOutcome
}

// TokenChecker verifies a raw token.
type TokenChecker interface {
	Verify(ctx context.Context, raw string) model.ValidationOutcome
}

// ExtractBearer returns the token from "Bearer <token>". The token must be
// non-empty and contain no whitespace.
func ExtractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return "", false
	}
	return token, true
}

// Local verifies tokens in the same process.
type Local struct {
	checker TokenChecker
}

func NewLocal(checker TokenChecker) *Local {
	return &Local{checker: checker}
}

func (l *Local) CheckBearer(ctx context.Context, header string) model.ValidationOutcome {
	token, ok := ExtractBearer(header)
	if !ok {
		return model.InvalidOutcome(model.ReasonMalformedHeader)
	}
	out := l.checker.Verify(ctx, token)
	if out.Valid && out.Username == "" {
		return model.InvalidOutcome(model.ReasonTokenMalformed)
	}
	return out
}
