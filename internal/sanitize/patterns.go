// Package sanitize redacts secrets and personally identifiable
// information from tool output before it re-enters a Conversation or
// is written to logs, the Fact Ledger, or the Approval Store.
package sanitize

import "regexp"

// category names a compiled pattern for DetectSecrets reporting and for
// choosing its placeholder text.
type category struct {
	name        string
	placeholder string
	pattern     *regexp.Regexp
}

// orderedPatterns is tried top to bottom. Structural patterns (PEM
// blocks, JWTs) come first so a generic key=value pattern never
// partially matches inside one of them first.
var orderedPatterns = []category{
	{
		name:        "private_key",
		placeholder: "[PRIVATE_KEY_REDACTED]",
		pattern:     regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	},
	{
		name:        "jwt",
		placeholder: "[JWT_REDACTED]",
		pattern:     regexp.MustCompile(`\bey[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`),
	},
	{
		name:        "aws_key",
		placeholder: "[AWS_KEY_REDACTED]",
		pattern:     regexp.MustCompile(`(?i)\b(AKIA|ASIA)[0-9A-Z]{16}\b`),
	},
	{
		name:        "bearer_token",
		placeholder: "[BEARER_TOKEN_REDACTED]",
		pattern:     regexp.MustCompile(`(?i)\bbearer\s+[\w.\-]+`),
	},
	{
		name:        "api_key_kv",
		placeholder: "[API_KEY_REDACTED]",
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{16,}['"]?`),
	},
	{
		name:        "generic_secret_kv",
		placeholder: "[SECRET_REDACTED]",
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|secret|token|access[_-]?key)\s*[:=]\s*['"]?[^\s'"]{6,}['"]?`),
	},
	{
		name:        "env_var_secret",
		placeholder: "[SECRET_REDACTED]",
		pattern:     regexp.MustCompile(`(?im)^([A-Z0-9_]*(?:KEY|SECRET|TOKEN|PASSWORD)[A-Z0-9_]*)=\S+$`),
	},
	{
		name:        "email",
		placeholder: "[EMAIL_REDACTED]",
		pattern:     regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.-]+\b`),
	},
	{
		name:        "ssn",
		placeholder: "[SSN_REDACTED]",
		pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		name:        "phone",
		placeholder: "[PHONE_REDACTED]",
		pattern:     regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`),
	},
	{
		name:        "credit_card",
		placeholder: "[CARD_REDACTED]",
		pattern:     regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),
	},
}

// ipPattern is applied only when Config.RedactIPs is set.
var ipPattern = category{
	name:        "ip_address",
	placeholder: "[IP_REDACTED]",
	pattern:     regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// sensitiveMapKeys trigger full-value redaction of a map entry
// regardless of whether the value itself matches a pattern.
var sensitiveMapKeys = map[string]bool{
	"password": true, "passwd": true, "secret": true, "token": true,
	"api_key": true, "apikey": true, "private_key": true, "privatekey": true,
	"auth": true, "authorization": true, "access_key": true, "access_token": true,
}
