package dbretry_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/amethyx/accessbot/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "no rows", err: sql.ErrNoRows, want: false},
		{name: "connection refused", err: errConnRefused, want: true},
		{name: "wrapped broken pipe", err: errors.Join(errors.New("write"), errors.New("broken pipe")), want: true},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		calls++
		return 0, sql.ErrNoRows
	})

	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 1, calls)
}

func TestOperationRetriesTransientError(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := dbretry.Operation(t.Context(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errConnRefused
		}

		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestNoResultPassesThroughSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := dbretry.NoResult(t.Context(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
