package podcast

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxContentLength = 50000
	MaxTitleLength   = 200

	DefaultLanguage = "en-IN"
)

// SupportedLanguages are the locale codes the synthesis pipeline accepts.
var SupportedLanguages = []string{
	"en-IN", "hi-IN", "ta-IN", "te-IN", "kn-IN", "ml-IN",
	"en-US", "hi", "ta", "te", "kn", "ml",
}

// ValidationError is a client-caused admission failure. Handlers map it
// to a 400 response; it is never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

type GenerationRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	Title    string `json:"title"`
}

// Validate checks the request in order, first failure wins.
func (r *GenerationRequest) Validate() error {
	if utf8.RuneCountInString(r.Content) > MaxContentLength {
		return invalidf("content too long. maximum %d characters allowed", MaxContentLength)
	}
	// an absent field decodes to "", so missing and blank content share
	// one rejection
	if strings.TrimSpace(r.Content) == "" {
		return invalidf("content cannot be empty")
	}
	if r.Language != "" && !supportedLanguage(r.Language) {
		return invalidf("unsupported language. supported: %s", strings.Join(SupportedLanguages, ", "))
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return invalidf("title too long. maximum %d characters allowed", MaxTitleLength)
	}
	return nil
}

// Sanitize normalizes a validated request in place: content is stripped
// of angle brackets, trimmed and truncated; title is truncated only;
// an absent language falls back to the default. Idempotent.
func (r *GenerationRequest) Sanitize() {
	r.Content = sanitizeContent(r.Content)
	r.Title = truncateRunes(r.Title, MaxTitleLength)
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

func sanitizeContent(s string) string {
	s = strings.TrimSpace(angleBrackets.Replace(s))
	if utf8.RuneCountInString(s) > MaxContentLength {
		// trim again so re-sanitizing a truncated string is a no-op
		s = strings.TrimSpace(truncateRunes(s, MaxContentLength))
	}
	return s
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func supportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}
