package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAgentContext(t *testing.T) {
	ctx := NewAgentContext(map[string]any{"target": "api"})

	assert.NotEmpty(t, ctx.RunID())
	assert.False(t, ctx.Created().IsZero())

	v, ok := ctx.Value("target")
	assert.True(t, ok)
	assert.Equal(t, "api", v)

	_, ok = ctx.Value("missing")
	assert.False(t, ok)
}

func TestAgentContext_Immutable(t *testing.T) {
	input := map[string]any{"target": "api"}
	ctx := NewAgentContext(input)

	// Mutating the caller's map after construction must not be visible.
	input["target"] = "mutated"
	v, _ := ctx.Value("target")
	assert.Equal(t, "api", v)

	// Mutating the returned payload copy must not be visible either.
	ctx.Payload()["target"] = "mutated"
	v, _ = ctx.Value("target")
	assert.Equal(t, "api", v)
}

func TestAgentContext_UniqueRunIDs(t *testing.T) {
	a := NewAgentContext(nil)
	b := NewAgentContext(nil)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
