package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type VerificationType string

const (
	VerificationConfirmed      VerificationType = "confirmed"
	VerificationStillValid     VerificationType = "still_valid"
	VerificationPartiallyValid VerificationType = "partially_valid"
	VerificationOutdated       VerificationType = "outdated"
	VerificationIncorrect      VerificationType = "incorrect"
)

func ValidVerificationType(t string) bool {
	switch VerificationType(t) {
	case VerificationConfirmed, VerificationStillValid, VerificationPartiallyValid,
		VerificationOutdated, VerificationIncorrect:
		return true
	}
	return false
}

// Negative verdicts dominate positive ones instead of averaging with them.
func (t VerificationType) Negative() bool {
	return t == VerificationOutdated || t == VerificationIncorrect
}

// Renews reports whether the verdict resets the freshness reference.
func (t VerificationType) Renews() bool {
	return t == VerificationConfirmed || t == VerificationStillValid
}

// Severity orders negative verdicts; higher is worse.
func (t VerificationType) Severity() int {
	switch t {
	case VerificationIncorrect:
		return 2
	case VerificationOutdated:
		return 1
	default:
		return 0
	}
}

// Verification is an append-only audit event; it is never updated or deleted.
type Verification struct {
	ID         uuid.UUID        `json:"id"`
	MemoryID   uuid.UUID        `json:"memory_id"`
	VerifierID string           `json:"verifier_id"`
	Type       VerificationType `json:"type"`
	Note       string           `json:"note,omitempty"`
	DedupKey   string           `json:"-"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NaturalKey identifies duplicate submissions of the same verification.
func (v *Verification) NaturalKey() string {
	return eventKey(v.MemoryID.String(), v.VerifierID, string(v.Type), v.Note, v.CreatedAt)
}

func eventKey(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		switch p := p.(type) {
		case time.Time:
			fmt.Fprintf(h, "%d|", p.UTC().Truncate(time.Second).Unix())
		default:
			fmt.Fprintf(h, "%v|", p)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
