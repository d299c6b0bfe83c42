package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorWrapMsgKeepsCode(t *testing.T) {
	err := ErrNoPermission.WrapMsg("picture not editable", "picture_id", 42)

	ce, ok := AsCode(err)
	require.True(t, ok)
	assert.Equal(t, NoAuthErr, ce.Code)
	assert.Equal(t, "picture not editable, picture_id=42", ce.Detail)
	assert.True(t, ErrNoPermission.Is(err))
	assert.False(t, ErrNotLogin.Is(err))
	// the predefined value must stay untouched
	assert.Empty(t, ErrNoPermission.Detail)
}

func TestIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("authorize: %w", ErrRecordNotFound.Wrap())
	assert.True(t, ErrRecordNotFound.Is(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrArgs.Wrap():           http.StatusBadRequest,
		ErrNotLogin.Wrap():       http.StatusUnauthorized,
		ErrTokenExpired.Wrap():   http.StatusUnauthorized,
		ErrNoPermission.Wrap():   http.StatusForbidden,
		ErrRecordNotFound.Wrap(): http.StatusNotFound,
		ErrClosed.Wrap():         http.StatusServiceUnavailable,
		New("plain"):             http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))
	err := ErrPanic("boom")
	ce, ok := AsCode(err)
	require.True(t, ok)
	assert.Equal(t, ServerInternalError, ce.Code)
	assert.Equal(t, "boom", ce.Detail)
}

func TestToStringOddKV(t *testing.T) {
	assert.Equal(t, "msg, a=1, b=MISSING", toString("msg", []any{"a", 1, "b"}))
}
