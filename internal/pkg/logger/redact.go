package logger

// RedactSecret masks a credential for safe logging.
// "CFPAT-abcdef123456" → "CF***56"
// Short values (≤8 chars) are fully masked: "abc" → "***"
func RedactSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
