package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusBadRequest,
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorization:  http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusConflict,
		KindDependency:     http.StatusInternalServerError,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("accept: %w", Conflict("Donation already assigned."))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestDetail_OnlyForServerSideKinds(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	assert.Equal(t, "dial tcp: i/o timeout", Dependency("Failed to send OTP.", cause).Detail())
	assert.Equal(t, "", Wrap(KindValidation, "bad", cause).Detail())
	assert.Equal(t, "", Validation("bad").Detail())
	assert.ErrorIs(t, Internal("store", cause), cause)
}
