package sanitize

import (
	"encoding/json"
	"strings"
)

// DefaultMaxBytes is the content size cap beyond which sanitized text is
// truncated before being appended to a Conversation.
const DefaultMaxBytes = 5 * 1024

const truncateSuffix = "\n…[truncated]"

// Config controls which optional categories Sanitizer applies.
type Config struct {
	RedactIPs bool
	MaxBytes  int
}

// DefaultConfig matches the spec's defaults: IP redaction off, 5KB cap.
func DefaultConfig() Config {
	return Config{RedactIPs: false, MaxBytes: DefaultMaxBytes}
}

// Redaction names one category that fired during a Sanitize call.
type Redaction struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Result is the outcome of Sanitize.
type Result struct {
	Text       string      `json:"text"`
	Redactions []Redaction `json:"redactions"`
	Truncated  bool        `json:"truncated"`
}

// Sanitizer applies the fixed ordered pattern list to arbitrary text and
// structured values. It is stateless and safe for concurrent use.
type Sanitizer struct {
	cfg Config
}

// New builds a Sanitizer. A zero Config uses package defaults.
func New(cfg Config) *Sanitizer {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Sanitizer{cfg: cfg}
}

// Sanitize replaces every matched category in text with its placeholder,
// then truncates if the result exceeds the configured size cap.
//
// Sanitize is idempotent: placeholders never match any pattern, so a
// second call on already-sanitized text returns it unchanged (besides a
// possible second truncation pass, which is also a no-op once applied).
func (s *Sanitizer) Sanitize(text string) Result {
	if text == "" {
		return Result{Text: "", Redactions: nil}
	}

	out := text
	var redactions []Redaction
	patterns := orderedPatterns
	if s.cfg.RedactIPs {
		patterns = append(append([]category{}, orderedPatterns...), ipPattern)
	}
	for _, c := range patterns {
		n := len(c.pattern.FindAllStringIndex(out, -1))
		if n == 0 {
			continue
		}
		out = c.pattern.ReplaceAllString(out, c.placeholder)
		redactions = append(redactions, Redaction{Category: c.name, Count: n})
	}

	truncated := false
	if len(out) > s.cfg.MaxBytes {
		out = out[:s.cfg.MaxBytes] + truncateSuffix
		truncated = true
	}

	return Result{Text: out, Redactions: redactions, Truncated: truncated}
}

// HasSecrets reports whether text matches any secret-bearing category
// (the PII-only categories — email, phone, SSN, card — are excluded,
// since a true/false secrets signal is meant for access-control
// decisions, not general privacy scanning).
func (s *Sanitizer) HasSecrets(text string) bool {
	if text == "" {
		return false
	}
	for _, c := range orderedPatterns {
		switch c.name {
		case "email", "ssn", "phone", "credit_card":
			continue
		}
		if c.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// SanitizeValue redacts a value of arbitrary shape: strings and errors
// are run through Sanitize, byte slices are treated as UTF-8 text, maps
// are redacted key by key (with sensitive key names fully replaced
// regardless of content), and anything else is round-tripped through
// JSON and sanitized as text.
func (s *Sanitizer) SanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.Sanitize(val).Text
	case error:
		return s.Sanitize(val.Error()).Text
	case []byte:
		return s.Sanitize(string(val)).Text
	case map[string]any:
		return s.SanitizeMap(val)
	default:
		if b, err := json.Marshal(v); err == nil {
			return s.Sanitize(string(b)).Text
		}
		return v
	}
}

// SanitizeMap redacts every value in m, fully replacing values whose key
// is a known-sensitive name.
func (s *Sanitizer) SanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sensitiveMapKeys[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = s.SanitizeValue(v)
	}
	return out
}

// DetectCategories lists which category names matched in text, for
// logging or alerting on attempted secret exfiltration.
func (s *Sanitizer) DetectCategories(text string) []string {
	if text == "" {
		return nil
	}
	var names []string
	for _, c := range orderedPatterns {
		if c.pattern.MatchString(text) {
			names = append(names, c.name)
		}
	}
	return names
}
