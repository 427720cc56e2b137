package dispatch

import (
	"testing"

	"github.com/metarelay/metarelay/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestResolveTemplate(t *testing.T) {
	event := &types.Event{
		Repo:    "owner/repo",
		Ref:     "main",
		Payload: map[string]any{"conclusion": "failure"},
	}

	got := ResolveTemplate("{{repo}} {{ref}} {{payload.conclusion}} {{payload.missing}}", event)
	assert.Equal(t, "owner/repo main failure ", got)
}

func TestResolveTemplateNoPlaceholders(t *testing.T) {
	event := &types.Event{Repo: "owner/repo"}
	assert.Equal(t, "echo hello", ResolveTemplate("echo hello", event))
}
