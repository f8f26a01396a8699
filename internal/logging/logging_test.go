package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler("production", &buf)).Info("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	dev := slog.New(NewHandler("development", &buf))
	dev.Debug("visible in development")
	assert.Contains(t, buf.String(), "msg=\"visible in development\"")
}

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h).With("request_id", "r-1")

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	log.Info("ordinary")
	log.Error("broken")

	assert.Contains(t, info.String(), "ordinary")
	assert.Contains(t, info.String(), "broken")
	assert.NotContains(t, errs.String(), "ordinary")
	assert.Contains(t, errs.String(), "broken")
	assert.Contains(t, errs.String(), "request_id=r-1")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler_FailingChildDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	h := NewMultiHandler(failingHandler{text}, nil, text)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "still written", 0)
	err := h.Handle(context.Background(), rec)

	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "still written")
	assert.Same(t, h, h.WithGroup(""))
}

func TestPGHandler_FlushesErrorsOnStop(t *testing.T) {
	db, mock := newMockDB(t)
	h := newPGHandler(db, time.Hour)

	mock.ExpectExec(`INSERT INTO "system_logs"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	log := slog.New(h).With("request_id", "req-42")
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	log.Error("refresh rotation failed",
		"username", "alice",
		"action", "refresh",
		"error", errors.New("store down").Error(),
		"latency_ms", 12.6,
		"attempt", 2,
	)
	log.Error("second failure")

	h.Stop()
	h.Stop()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGHandler_RecordMapping(t *testing.T) {
	db, _ := newMockDB(t)
	h := newPGHandler(db, time.Hour)
	defer func() {
		h.core.mu.Lock()
		h.core.buffer = nil
		h.core.mu.Unlock()
		h.Stop()
	}()

	rec := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	rec.AddAttrs(
		slog.String("username", "bob"),
		slog.String("action", "login"),
		slog.Duration("latency_ms", 40*time.Millisecond),
		slog.String("path", "/api/auth/login"),
	)
	require.NoError(t, h.WithAttrs([]slog.Attr{slog.String("request_id", "abc")}).Handle(context.Background(), rec))

	h.core.mu.Lock()
	require.Len(t, h.core.buffer, 1)
	entry := h.core.buffer[0]
	h.core.mu.Unlock()

	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "abc", entry.RequestID)
	require.NotNil(t, entry.Username)
	assert.Equal(t, "bob", *entry.Username)
	assert.Equal(t, "login", entry.Action)
	assert.Equal(t, 40, entry.LatencyMs)
	assert.JSONEq(t, `{"path":"/api/auth/login"}`, string(entry.Extra))
}

func TestPurgeOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM "system_logs" WHERE timestamp < \$1`).
		WithArgs(now.Add(-720 * time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := PurgeOlderThan(context.Background(), db, 720*time.Hour, now)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
