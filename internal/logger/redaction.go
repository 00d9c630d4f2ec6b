package logger

import (
	"io"
	"regexp"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are substrings of argument names whose values are never logged
var sensitiveKeys = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "credential", "authorization"}

// Redactor masks credentials in log output and argument maps
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with the default credential patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
			regexp.MustCompile(`(?i)(password|secret|token)["\s:=]+[^\s",}]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact masks every pattern match in s
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	// report the caller's length; redaction changes the byte count
	return len(p), nil
}

// RedactArguments renders planned-call arguments for logging. Values of
// sensitive-looking keys are masked, other values pass through Redact, and
// explicit nulls are shown as "null".
func RedactArguments(args map[string]*string) map[string]string {
	r := defaultRedactor
	out := make(map[string]string, len(args))
	for k, v := range args {
		switch {
		case isSensitiveKey(k):
			out[k] = redacted
		case v == nil:
			out[k] = "null"
		default:
			out[k] = r.Redact(*v)
		}
	}
	return out
}

// ArgumentNames returns argument keys sorted, for compact log fields
func ArgumentNames(args map[string]*string) []string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var defaultRedactor = NewRedactor()

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
