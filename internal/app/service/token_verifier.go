package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"identity_hub/internal/common"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/model"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/logging"
)

// TokenVerifier answers whether a token still speaks for a live, enabled
// identity. Signature and expiry alone are not enough: the fingerprint in
// the token must match the subject's current record.
type TokenVerifier struct {
	codec    *security.TokenCodec
	userRepo repository.UserRepository
	log      logging.Logger
}

func NewTokenVerifier(codec *security.TokenCodec, userRepo repository.UserRepository, log logging.Logger) *TokenVerifier {
	return &TokenVerifier{
		codec:    codec,
		userRepo: userRepo,
		log:      log.With("module", "token_verifier"),
	}
}

// Verify never returns an error; every failure becomes an invalid outcome.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) model.ValidationOutcome {
	res := v.codec.Verify(raw)
	switch res.Status {
	case security.StatusOK:
	case security.StatusExpired:
		return model.InvalidOutcome(model.ReasonTokenExpired)
	case security.StatusInvalidSignature:
		return model.InvalidOutcome(model.ReasonInvalidSignature)
	default:
		return model.InvalidOutcome(model.ReasonTokenMalformed)
	}

	user, err := v.userRepo.FindByUsername(ctx, res.Claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return model.InvalidOutcome(model.ReasonSubjectNotFound)
		}
		v.log.Error(ctx, "identity lookup failed", "username", res.Claims.Subject, "error", err)
		return model.InvalidOutcome(model.ReasonLookupFailed)
	}

	current := security.IdentityFingerprint(user)
	if !user.Enabled || subtle.ConstantTimeCompare([]byte(current), []byte(res.Claims.Fingerprint)) != 1 {
		return model.InvalidOutcome(model.ReasonStaleToken)
	}
	return model.ValidOutcome(user.Username)
}
