package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sells-group/opportunity-etl/internal/model"
)

// SanitizePII replaces owner emails with a SHA-256 digest and phone numbers
// with their normalized E.164-style form.
func SanitizePII(opps []model.EnrichedOpportunity) []model.EnrichedOpportunity {
	out := make([]model.EnrichedOpportunity, len(opps))
	for i, o := range opps {
		o.OwnerEmailHash = HashEmail(o.OwnerEmail)
		o.PhoneNormalized = NormalizePhone(o.Phone)
		out[i] = o
	}
	return out
}

// HashEmail returns the hex SHA-256 of the trimmed, lower-cased address, or
// nil for a blank one.
func HashEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(email))
	return strPtr(hex.EncodeToString(sum[:]))
}

// NormalizePhone strips non-digits and renders the number with a leading "+".
// Ten-digit numbers, and eleven-digit numbers with a leading 1, are North
// American and become "+1" plus the subscriber number. "00" and "011"
// international prefixes are dropped. Anything shorter than eleven digits
// that is not North American is unparseable and yields nil.
func NormalizePhone(phone string) *string {
	digits := onlyDigits(phone)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}

	switch {
	case len(digits) == 10:
		return strPtr("+1" + digits)
	case len(digits) < 11:
		return nil
	case strings.HasPrefix(digits, "00"):
		return strPtr("+" + digits[2:])
	case strings.HasPrefix(digits, "011"):
		return strPtr("+" + digits[3:])
	default:
		return strPtr("+" + digits)
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
