package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("paying: %w", Conflict("all installments paid"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(nil, KindConflict))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindForbidden:       http.StatusForbidden,
		KindUnauthenticated: http.StatusUnauthorized,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "load policy")

	assert.Equal(t, "load policy failed", err.Error())
	assert.ErrorIs(t, err, cause)
}
