package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cinema/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestErrorWithKeepsIdentity(t *testing.T) {
	cause := errors.New("card declined")
	err := fmt.Errorf("create payment: %w", apperr.ErrPaymentProcessor.With(cause))

	assert.True(t, errors.Is(err, apperr.ErrPaymentProcessor))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, apperr.ErrCannotRefund))

	appErr, ok := apperr.From(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
	assert.Equal(t, "Payment processor error: card declined", appErr.Error())
}

func TestFromPlainError(t *testing.T) {
	_, ok := apperr.From(errors.New("boom"))
	assert.False(t, ok)
}
