package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NotFound("withdrawal not found", cause, WithDetails(Detail{Field: "id", Message: "unknown"}))

	require.Equal(t, "[not_found] withdrawal not found: connection reset", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, IsStatus(err, StatusNotFound))
	require.False(t, IsStatus(err, StatusConflict))

	wrapped := fmt.Errorf("complete withdrawal: %w", err)
	require.Equal(t, StatusNotFound, StatusOf(wrapped))

	var be BaseError
	require.True(t, errors.As(wrapped, &be))
	require.Equal(t, map[string]any{
		"error": map[string]any{
			"code":    StatusNotFound,
			"message": "withdrawal not found",
			"details": []Detail{{Field: "id", Message: "unknown"}},
		},
	}, be.JSON())
}

func TestStatusOf_PlainError(t *testing.T) {
	require.Equal(t, StatusInternal, StatusOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusBadRequest:          http.StatusBadRequest,
		StatusValidationFailed:    http.StatusBadRequest,
		StatusForbidden:           http.StatusForbidden,
		StatusNotFound:            http.StatusNotFound,
		StatusConflict:            http.StatusConflict,
		StatusUnprocessableEntity: http.StatusUnprocessableEntity,
		StatusClientClosedRequest: 499,
		StatusInternal:            http.StatusInternalServerError,
		CoreStatus("bogus"):       http.StatusInternalServerError,
	}

	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code.String())
	}
}
