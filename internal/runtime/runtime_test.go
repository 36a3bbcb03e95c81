package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/remindbot/internal/clock"
	"github.com/manav03panchal/remindbot/internal/config"
	rberrors "github.com/manav03panchal/remindbot/internal/errors"
	"github.com/manav03panchal/remindbot/internal/logging"
	"github.com/manav03panchal/remindbot/internal/output"
)

func newTestContext(t *testing.T, format output.Format) (*Context, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultRuntimeConfig()
	cfg.Owner = "alice"
	cfg.Location = time.UTC

	var buf bytes.Buffer
	ctx, err := New(cfg, Options{
		Format:    format,
		ColorMode: output.ColorNever,
		Writer:    &buf,
		Clock:     clock.NewFake(time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)),
		InMemory:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx, &buf
}

func TestNewContext(t *testing.T) {
	rc, _ := newTestContext(t, output.FormatCLI)

	assert.NotNil(t, rc.Store)
	assert.NotNil(t, rc.Service)
	assert.Equal(t, "alice", rc.Owner())
	assert.False(t, rc.IsJSON())
	assert.Equal(t, time.UTC, rc.Formatter.Location)
	assert.Equal(t, 2024, rc.Now().Year())
}

func TestContextServiceRoundTrip(t *testing.T) {
	rc, buf := newTestContext(t, output.FormatJSON)
	ctx := rc.Ctx(context.Background())

	_, err := rc.Service.AddTask(ctx, rc.Owner(), "Buy milk")
	require.NoError(t, err)

	tasks, err := rc.Service.ListTasks(ctx, rc.Owner())
	require.NoError(t, err)
	require.True(t, rc.IsJSON())
	require.NoError(t, rc.JSONFormatter().PrintTasks(tasks))
	assert.Contains(t, buf.String(), `"description": "Buy milk"`)
}

func TestCtxCarriesRequestID(t *testing.T) {
	rc, _ := newTestContext(t, output.FormatCLI)
	ctx := rc.Ctx(nil)
	assert.NotEmpty(t, logging.RequestIDFromContext(ctx))
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, (&Context{}).Close())
}

func TestFormatError(t *testing.T) {
	assert.Empty(t, FormatError(nil))

	ve := rberrors.NewValidationError("title", "Title cannot be empty", "Provide a title.", rberrors.ErrEmptyText)
	assert.Equal(t, "Title cannot be empty\n\nTry: Provide a title.", FormatError(ve))

	plain := errors.New("boom")
	assert.Equal(t, "boom", FormatError(plain))

	full := rberrors.NewStoreError("create_task", errors.New("database or disk is full"))
	assert.Contains(t, FormatError(full), "Free up disk space")
}

func TestErrorResponse(t *testing.T) {
	ve := rberrors.NewValidationErrorWithValue("time", "whenever", "could not parse time", "Use 2024-08-23 14:30", rberrors.ErrInvalidTimestamp)
	resp := ErrorResponse(ve)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "validation", resp.Category)
	assert.Equal(t, "Use 2024-08-23 14:30", resp.Suggestion)

	resp = ErrorResponse(rberrors.NewStoreError("open", rberrors.ErrStoreClosed))
	assert.Equal(t, "store", resp.Category)
}

func TestIsDiskFullError(t *testing.T) {
	assert.False(t, IsDiskFullError(nil))
	assert.False(t, IsDiskFullError(errors.New("permission denied")))
	assert.True(t, IsDiskFullError(ErrDiskFull))
	assert.True(t, IsDiskFullError(fmt.Errorf("write: %w", syscall.ENOSPC)))
	assert.True(t, IsDiskFullError(errors.New("write /db: no space left on device")))
}
