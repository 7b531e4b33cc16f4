package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestJSONAsserter(t *testing.T) {
	tests := []struct {
		name     string
		opts     []JSONOption
		actual   string
		expected string
		match    bool
	}{
		{
			name:     "identical",
			actual:   `{"status":"connected","address":"aa"}`,
			expected: `{"status":"connected","address":"aa"}`,
			match:    true,
		},
		{
			name:     "extra keys ignored by default",
			actual:   `{"status":"connected","time":"2026-01-01T00:00:00Z"}`,
			expected: `{"status":"connected"}`,
			match:    true,
		},
		{
			name:     "extra keys reported when strict",
			opts:     []JSONOption{WithIgnoreExtraKeys(false)},
			actual:   `{"status":"connected","time":"2026-01-01T00:00:00Z"}`,
			expected: `{"status":"connected"}`,
			match:    false,
		},
		{
			name:     "presence placeholder accepts any value",
			actual:   `{"status":"error","time":"2026-01-01T00:00:00Z"}`,
			expected: `{"status":"error","time":"<<PRESENCE>>"}`,
			match:    true,
		},
		{
			name:     "presence placeholder requires the key",
			actual:   `{"status":"error"}`,
			expected: `{"status":"error","time":"<<PRESENCE>>"}`,
			match:    false,
		},
		{
			name:     "ignored fields",
			opts:     []JSONOption{WithIgnoredFields("time"), WithIgnoreExtraKeys(false)},
			actual:   `{"status":"idle","time":"x"}`,
			expected: `{"status":"idle","time":"y"}`,
			match:    true,
		},
		{
			name:     "value mismatch",
			actual:   `{"status":"idle"}`,
			expected: `{"status":"connected"}`,
			match:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingT{}
			ok := NewJSONAsserter(rec, tt.opts...).Assert(tt.actual, tt.expected)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Empty(t, rec.errors)
			} else {
				assert.Len(t, rec.errors, 1)
			}
		})
	}
}

func TestJSONAsserterInvalidInput(t *testing.T) {
	diff := NewJSONAsserter(t).Diff(`{"a":`, `{"a":1}`)
	assert.Contains(t, diff, "invalid actual JSON")
}
