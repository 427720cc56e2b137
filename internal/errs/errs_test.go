package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypesUnwrap(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
	}{
		{"config", NewConfigError("bad config", cause)},
		{"connection", NewConnectionError("no connect", cause)},
		{"dispatch", NewDispatchError("no exec", cause)},
		{"event store", NewEventStoreError("no persist", cause)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), "boom")
		})
	}
}

func TestErrorTypesWithoutCause(t *testing.T) {
	err := NewConfigError("missing field", nil)
	assert.Equal(t, "config error: missing field", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
