package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"hotelier/shared/failure"
)

func TestFailureCodesAndNames(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantName string
	}{
		{
			name:     "unauthorized",
			err:      failure.Unauthorized("missing token"),
			wantCode: http.StatusUnauthorized,
			wantName: failure.NameUnauthorized,
		},
		{
			name:     "forbidden",
			err:      failure.Forbidden("admin only"),
			wantCode: http.StatusForbidden,
			wantName: failure.NameForbidden,
		},
		{
			name:     "not found",
			err:      failure.NotFound("room does not exist"),
			wantCode: http.StatusNotFound,
			wantName: failure.NameNotFound,
		},
		{
			name:     "room unavailable",
			err:      failure.RoomUnavailable("room 101 is booked"),
			wantCode: http.StatusConflict,
			wantName: failure.NameRoomUnavailable,
		},
		{
			name:     "conflict",
			err:      failure.Conflict("username is taken"),
			wantCode: http.StatusConflict,
			wantName: failure.NameConflict,
		},
		{
			name:     "internal error",
			err:      failure.InternalError(errors.New("connection refused")),
			wantCode: http.StatusInternalServerError,
			wantName: failure.NameInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, failure.GetCode(tt.err))
			assert.Equal(t, tt.wantName, failure.GetName(tt.err))
			assert.True(t, failure.Is(tt.err, tt.wantName))
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	err := failure.InternalError(errors.New("pq: relation bookings does not exist"))

	assert.NotContains(t, err.Error(), "pq:")
}

func TestInternalErrorNil(t *testing.T) {
	assert.NoError(t, failure.InternalError(nil))
	assert.NoError(t, failure.BadRequest(nil))
}

func TestFieldError(t *testing.T) {
	err := failure.FieldError("number", "number is already taken")

	assert.Equal(t, failure.NameValidationFailed, failure.GetName(err))
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	assert.Equal(t, []string{"number is already taken"}, failure.GetFields(err)["number"])
}

func TestGetFields(t *testing.T) {
	err := failure.ValidationFailed(map[string][]string{
		"username": {"username is required"},
		"password": {"password is required", "password must be at most 72 characters"},
	})

	fields := failure.GetFields(err)

	assert.Len(t, fields, 2)
	assert.Len(t, fields["password"], 2)

	assert.Nil(t, failure.GetFields(errors.New("plain error")))
}

func TestIsUnwrapsWrappedFailures(t *testing.T) {
	wrapped := fmt.Errorf("deleting room: %w", failure.Conflict("room has bookings"))

	assert.True(t, failure.Is(wrapped, failure.NameConflict))
	assert.False(t, failure.Is(wrapped, failure.NameNotFound))
	assert.Equal(t, http.StatusConflict, failure.GetCode(wrapped))
}

func TestPlainErrorDefaultsToInternal(t *testing.T) {
	err := errors.New("unexpected")

	assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	assert.Equal(t, failure.NameInternalError, failure.GetName(err))
	assert.False(t, failure.Is(err, failure.NameInternalError))
}
