package redact

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const placeholder = "***"

// minSecretLen keeps short values such as "1" from masking unrelated text.
const minSecretLen = 4

// secretPatterns are regex heuristics for credentials sizewatch handles.
var secretPatterns = []*regexp.Regexp{
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Signed blob upload URLs
	regexp.MustCompile(`([?&]sig=)[^&\s"]+`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password)\s*[:=]\s*["']([^"']{8,})["']`),
}

// Secrets replaces detected credentials in text.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			if strings.Contains(match, "sig=") {
				return match[:strings.Index(match, "sig=")+len("sig=")] + placeholder
			}
			return placeholder
		})
	}
	return result
}

// Hook is a logrus hook that redacts known values and detected secrets from
// messages and string or error fields.
type Hook struct {
	mu     sync.RWMutex
	values []string
}

// NewHook returns a Hook masking values.
func NewHook(values ...string) *Hook {
	h := &Hook{}
	h.Add(values...)
	return h
}

// Add registers more values to mask. Empty and very short values are
// ignored.
func (h *Hook) Add(values ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range values {
		if len(v) < minSecretLen {
			continue
		}
		h.values = append(h.values, v)
	}
	// Longest first so a value containing another is masked whole.
	sort.Slice(h.values, func(i, j int) bool { return len(h.values[i]) > len(h.values[j]) })
}

// Redact masks registered values, then detected secrets, in text.
func (h *Hook) Redact(text string) string {
	h.mu.RLock()
	for _, v := range h.values {
		text = strings.ReplaceAll(text, v, placeholder)
	}
	h.mu.RUnlock()
	return Secrets(text)
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	e.Message = h.Redact(e.Message)
	for k, v := range e.Data {
		switch val := v.(type) {
		case string:
			e.Data[k] = h.Redact(val)
		case error:
			if red := h.Redact(val.Error()); red != val.Error() {
				e.Data[k] = errors.New(red)
			}
		}
	}
	return nil
}

// Mask adds values to the Hook installed on log, installing one when there
// is none yet.
func Mask(log *logrus.Logger, values ...string) *Hook {
	for _, hooks := range log.Hooks {
		for _, hook := range hooks {
			if h, ok := hook.(*Hook); ok {
				h.Add(values...)
				return h
			}
		}
	}
	h := NewHook(values...)
	log.AddHook(h)
	return h
}
