package plugins

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	inner := moduleResolutionError("a.b", errors.New("no module named 'a.b'"))
	err := pluginLoadError("Hello v1.0", inner)

	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, ErrModuleResolution)
	assert.NotErrorIs(t, err, ErrManifest)
	assert.NotErrorIs(t, err, ErrCapabilityMismatch)

	wrapped := fmt.Errorf("startup: %w", err)
	assert.ErrorIs(t, wrapped, ErrModuleResolution)
	assert.Equal(t, KindLoad, KindOf(wrapped))

	var resolution *Error
	assert.True(t, errors.As(inner, &resolution))
	assert.Equal(t, "a.b", resolution.Subject)
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: KindManifest},
			want: "invalid manifest",
		},
		{
			name: "message and cause",
			err:  manifestLoadError("/tmp/x.zip", errors.New("boom")),
			want: "unable to load manifest from /tmp/x.zip: boom",
		},
		{
			name: "capability mismatch",
			err:  capabilityMismatchError("hello.Hello", []string{"on_command"}),
			want: "main class hello.Hello does not implement the plugin capability set (missing on_command)",
		},
		{
			name: "module resolution",
			err:  moduleResolutionError("a.b", nil),
			want: "unable to resolve module a.b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindAlreadyBound, KindOf(alreadyBoundError("x")))
	assert.Equal(t, "capability mismatch", KindCapabilityMismatch.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
