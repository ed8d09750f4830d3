package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "fetch error (code 404): https://cdn/x", Fetch(404, "https://cdn/x").Error())
	assert.Equal(t, "write error: /tmp/a.png: unexpected EOF", Write("/tmp/a.png", io.ErrUnexpectedEOF).Error())
}

func TestTypeOfWrapped(t *testing.T) {
	err := fmt.Errorf("materialize: %w", PageStructure(".emotes", nil))

	assert.Equal(t, ErrorTypePageStructure, TypeOf(err))
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypePageStructure}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeWrite}))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(io.EOF))
}

func TestUnwrapReachesCause(t *testing.T) {
	err := Write("x", io.ErrShortWrite)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err   error
		fatal bool
	}{
		{nil, false},
		{Fetch(500, "u"), false},
		{New(ErrorTypeNotFound, "user"), false},
		{New(ErrorTypeEmptyListing, "user"), false},
		{Write("p", io.EOF), true},
		{PageStructure(".name", nil), true},
		{io.EOF, true},
	}

	for _, test := range tests {
		assert.Equal(t, test.fatal, IsFatal(test.err), "%v", test.err)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.False(t, IsRetryable(ErrorTypeFetch))
	assert.False(t, IsRetryable(ErrorTypeWrite))
}
