package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ErrMalformedCatalog.Code, ErrMalformedCatalog.Status, "missing rooms")

	got := FromError(wrapped)

	assert.Same(t, wrapped, got)
	assert.Equal(t, http.StatusUnprocessableEntity, got.Status)
	assert.Equal(t, "missing rooms: boom", got.Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("disk gone"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrValidation, "seed must be positive")

	assert.Equal(t, "seed must be positive", clone.Message)
	assert.Equal(t, ErrValidation.Code, clone.Code)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Nil(t, Clone(nil, "x"))
}
