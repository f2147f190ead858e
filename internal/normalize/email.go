package normalize

import (
	"regexp"
	"strings"
)

// emailPattern is a strict (not RFC-5322-complete) validation regex,
// deliberately conservative: it rejects addresses a mail server would
// bounce on rather than trying to accept every legal edge case.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// disposableDomains is a small seed list of known disposable-email
// providers. Real deployments load a much larger, operator-maintained
// list; this core ships the structural check plus a minimal default.
var disposableDomains = map[string]bool{
	"mailinator.com": true,
	"10minutemail.com": true,
	"guerrillamail.com": true,
	"tempmail.com":      true,
	"yopmail.com":       true,
	"trashmail.com":     true,
}

// Email lowercases and validates an email address, flagging disposable
// domains. The cleaned value is emitted regardless of validity.
func Email(raw string) (clean string, valid bool, disposable bool) {
	clean = strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return "", true, false
	}

	valid = emailPattern.MatchString(clean)

	if at := strings.LastIndex(clean, "@"); at >= 0 && at < len(clean)-1 {
		domain := clean[at+1:]
		disposable = disposableDomains[domain]
	}
	return clean, valid, disposable
}

// EmailLocalPart returns the portion before '@', used by the
// similarity kernel's local-part edit-distance comparison.
func EmailLocalPart(normalizedEmail string) string {
	if at := strings.Index(normalizedEmail, "@"); at >= 0 {
		return normalizedEmail[:at]
	}
	return normalizedEmail
}
