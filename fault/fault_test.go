package fault

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := New(ConnectionClosed, "recv", io.EOF)
	wrapped := errors.Wrap(base, "serve")

	assert.Equal(t, ConnectionClosed, KindOf(base))
	assert.Equal(t, ConnectionClosed, KindOf(wrapped))
	assert.True(t, Is(wrapped, ConnectionClosed))
	assert.False(t, Is(wrapped, BindFailure))
	assert.True(t, errors.Is(wrapped, io.EOF))
	assert.Equal(t, Unknown, KindOf(io.EOF))
	assert.False(t, Is(nil, Unknown))
}

func TestErrorText(t *testing.T) {
	err := Errorf(LookupFailure, "myproc", "no procedure named %q", "myproc")
	assert.Equal(t, `myproc: lookup failure: no procedure named "myproc"`, err.Error())
	assert.Equal(t, "bind:1234: bind failure", New(BindFailure, "bind:1234", nil).Error())
}
