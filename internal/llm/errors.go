package llm

import (
	"errors"
	"strings"
)

// ErrorMessageID maps an upstream AI failure to the i18n message ID of a
// best-effort human-readable classification. Unrecognized failures get the
// generic fallback message.
func ErrorMessageID(err error) string {
	if errors.Is(err, ErrNoCredential) {
		return "ErrAIMissingCredential"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "ErrAIQuota"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "ErrAITimeout"
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401"):
		return "ErrAIKey"
	default:
		return "ErrAIGeneric"
	}
}
