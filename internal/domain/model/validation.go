package model

// Failure reasons reported in a ValidationOutcome.
const (
	ReasonMalformedHeader  = "missing or malformed header"
	ReasonTokenMalformed   = "token malformed"
	ReasonInvalidSignature = "token signature invalid"
	ReasonTokenExpired     = "token expired"
	ReasonSubjectNotFound  = "subject not found"
	ReasonStaleToken       = "stale token"
	ReasonLookupFailed     = "identity lookup failed"
	ReasonUpstreamPrefix   = "identity service unavailable: "

	messageTokenValid = "Token is valid"
)

// ValidationOutcome is the answer to "is this bearer token valid, and for
// whom". It doubles as the JSON body of the validation endpoint.
type ValidationOutcome struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

func ValidOutcome(username string) ValidationOutcome {
	return ValidationOutcome{Valid: true, Username: username, Message: messageTokenValid}
}

func InvalidOutcome(reason string) ValidationOutcome {
	return ValidationOutcome{Valid: false, Message: reason}
}

// UpstreamOutcome is the fail-closed result for a transport failure.
func UpstreamOutcome(detail string) ValidationOutcome {
	return InvalidOutcome(ReasonUpstreamPrefix + detail)
}
