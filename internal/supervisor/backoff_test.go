package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSequence(t *testing.T) {
	bo := newBackoff()
	want := []time.Duration{1, 2, 4, 8, 16, 32, 60, 60}
	for _, w := range want {
		assert.Equal(t, w*time.Second, bo.next())
	}
}

func TestBackoffResetRestartsSequence(t *testing.T) {
	bo := newBackoff()
	assert.Equal(t, 1*time.Second, bo.next())
	assert.Equal(t, 2*time.Second, bo.next())
	bo.reset()
	assert.Equal(t, 1*time.Second, bo.next())
}
