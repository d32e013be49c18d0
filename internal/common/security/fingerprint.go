package security

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"identity_hub/internal/domain/model"
)

// IdentityFingerprint summarizes the security-relevant state of u. It
// changes whenever the role or enabled flag changes or the store bumps
// the record version, so tokens minted before such a change stop verifying.
func IdentityFingerprint(u *model.User) string {
	var b strings.Builder
	b.WriteString(u.ID)
	b.WriteByte('|')
	b.WriteString(string(u.Role))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(u.Enabled))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(u.Version, 10))

	sum := sha256.Sum256([]byte(b.String()))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
