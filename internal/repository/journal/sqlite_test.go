package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

func openTemp(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, repo.Close()) })

	return repo
}

// TestSQLiteRepository_AppendRecent checks rows come back newest first with their payload.
func TestSQLiteRepository_AppendRecent(t *testing.T) {
	t.Parallel()

	repo := openTemp(t)
	ctx := context.Background()
	at := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	_, err := uuid.Parse(repo.RunID())
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, alarm.AlarmInserted{
		At:      at,
		DueAt:   at.Add(10 * time.Second),
		Message: "first",
		AlarmID: 1,
		GroupID: 2,
	}))
	require.NoError(t, repo.Append(ctx, alarm.WorkerCreated{At: at, WorkerID: 5, GroupID: 2}))
	require.NoError(t, repo.Append(ctx, alarm.AlarmChanged{
		At:         at.Add(time.Second),
		Message:    "second",
		AlarmID:    1,
		OldGroupID: 2,
		NewGroupID: 3,
	}))

	records, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	changed := records[0]
	require.Equal(t, alarm.KindAlarmChanged, changed.Kind)
	require.Equal(t, repo.RunID(), changed.RunID)
	require.Equal(t, int64(1), changed.AlarmID.Int64)
	require.Equal(t, int64(3), changed.GroupID.Int64)
	require.Equal(t, "second", changed.Payload["message"])

	worker := records[1]
	require.False(t, worker.AlarmID.Valid)
	require.True(t, worker.GroupID.Valid)

	inserted := records[2]
	require.True(t, at.Equal(inserted.At))
	require.Equal(t, at.Add(10*time.Second).Format(time.RFC3339Nano), inserted.Payload["due_at"])

	limited, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

// TestSQLiteRepository_Closed checks appends after Close are rejected and Emit swallows them.
func TestSQLiteRepository_Closed(t *testing.T) {
	t.Parallel()

	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	require.ErrorIs(t, repo.Append(context.Background(), alarm.AlarmInserted{}), ErrClosed)
	require.NotPanics(t, func() { repo.Emit(context.Background(), alarm.AlarmInserted{}) })
}

// TestSQLiteRepository_Reopen checks rows survive a reopen under a new run id.
func TestSQLiteRepository_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	require.NoError(t, err)
	first.Emit(ctx, alarm.AlarmExpired{AlarmID: 7, GroupID: 1, Message: "done"})
	require.NoError(t, first.Close())

	second, err := Open(ctx, path)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, second.Close()) })

	require.NotEqual(t, first.RunID(), second.RunID())

	records, err := second.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, first.RunID(), records[0].RunID)
}
