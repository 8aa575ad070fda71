package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"conflict", Conflict("taken"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("nope"), http.StatusUnauthorized},
		{"not found", NotFound("gone"), http.StatusNotFound},
		{"dependency", Dependency("smtp down", errors.New("dial tcp")), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("gone")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "taken", PublicMessage(Conflict("taken")))

	// Internal detail never leaks outward
	dep := Dependency("smtp down", errors.New("dial tcp 10.0.0.1:25"))
	assert.Equal(t, "internal server error", PublicMessage(dep))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("dial tcp")
	err := Dependency("smtp down", cause)
	assert.ErrorIs(t, err, cause)
}
