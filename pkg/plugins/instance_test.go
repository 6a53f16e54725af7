package plugins

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInstance_Bind tests that an instance binds exactly once
func TestInstance_Bind(t *testing.T) {
	server, _ := newTestServer()
	d := mustParse(t, helloManifest)
	inst := NewInstance(&stubPlugin{})

	assert.False(t, inst.IsBound())
	assert.NotEqual(t, uuid.Nil, inst.ID())

	require.NoError(t, inst.Bind(d, nil, server))
	assert.True(t, inst.IsBound())
	assert.Same(t, d, inst.Description())
	assert.Equal(t, "Hello", inst.Name())
	assert.Equal(t, server, inst.Server())
	assert.Equal(t, "Hello", inst.Logger().Data["plugin"])
	assert.False(t, inst.IsEnabled())

	other := mustParse(t, "name = \"Other\"\nversion = \"2.0\"\nmain = \"o.O\"")
	err := inst.Bind(other, nil, server)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.Same(t, d, inst.Description())
}

func TestInstance_BindNilDescription(t *testing.T) {
	inst := NewInstance(&stubPlugin{})
	assert.ErrorIs(t, inst.Bind(nil, nil, nil), ErrInvalidInput)
	assert.False(t, inst.IsBound())
}

// TestInstance_UnboundPanics tests that using an unbound instance is a programming error
func TestInstance_UnboundPanics(t *testing.T) {
	inst := NewInstance(&stubPlugin{})

	assert.Panics(t, func() { inst.Description() })
	assert.Panics(t, func() { inst.Logger() })
	assert.Panics(t, func() { inst.IsEnabled() })
	assert.Panics(t, func() { _ = inst.Load() })
}

func TestInstance_LoadAndCommand(t *testing.T) {
	server, _ := newTestServer()
	p := &stubPlugin{}
	inst := NewInstance(p)
	require.NoError(t, inst.Bind(mustParse(t, helloManifest), nil, server))

	require.NoError(t, inst.Load())
	handled, err := inst.Command(&recordingSender{}, Command{Name: "hello"}, "hello", nil)
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, 1, p.loads)
	assert.Equal(t, 1, p.commands)
	assert.Same(t, p, inst.Plugin())
}
