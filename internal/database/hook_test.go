package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/amethyx/accessbot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHookLogsQueries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	hook := database.NewHook(zap.New(core))

	event := &bun.QueryEvent{
		Query:     "SELECT 1",
		StartTime: time.Now(),
	}
	ctx := hook.BeforeQuery(t.Context(), event)
	hook.AfterQuery(ctx, event)

	event.Err = errors.New("boom")
	hook.AfterQuery(ctx, event)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "Query executed", entries[0].Message)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["query"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "Query failed", entries[1].Message)
}
