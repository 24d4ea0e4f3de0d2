package domainerrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "lingkod/pkg/domain-errors"
)

func TestCodeOf(t *testing.T) {
	err := dErrors.New(dErrors.CodeNotFound, "applicant not found")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	assert.False(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := dErrors.Wrap(cause, dErrors.CodeConflict, "invite code already taken")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "invite code already taken")
	assert.Contains(t, err.Error(), cause.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, dErrors.Wrap(nil, dErrors.CodeInternal, "ignored"))
}

func TestCodeSurvivesFmtWrapping(t *testing.T) {
	inner := dErrors.New(dErrors.CodeValidation, "release quantity exceeds stock")
	outer := fmt.Errorf("dispense: %w", inner)

	assert.True(t, dErrors.HasCode(outer))
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(outer))
}

func TestUncodedErrorDefaultsToInternal(t *testing.T) {
	err := errors.New("connection refused")
	assert.False(t, dErrors.HasCode(err))
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeBadRequest:   http.StatusBadRequest,
		dErrors.CodeValidation:   http.StatusBadRequest,
		dErrors.CodeNotFound:     http.StatusNotFound,
		dErrors.CodeConflict:     http.StatusConflict,
		dErrors.CodeInvalidState: http.StatusConflict,
		dErrors.CodeUnauthorized: http.StatusUnauthorized,
		dErrors.CodeTimeout:      http.StatusGatewayTimeout,
		dErrors.CodeInternal:     http.StatusInternalServerError,
		dErrors.CodeEncryption:   http.StatusInternalServerError,
		dErrors.CodeDecryption:   http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, dErrors.ToHTTPStatus(code), string(code))
	}
}
