package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/repository"
)

func newQueuedRun(lang string) *model.Run {
	return &model.Run{
		ID:       uuid.NewString(),
		Language: lang,
		Code:     "print('hi')",
	}
}

func TestCreateRun_Defaults(t *testing.T) {
	db := newTestDB(t)
	run := newQueuedRun("python")

	require.NoError(t, db.CreateRun(context.Background(), run))
	assert.Equal(t, model.RunQueued, run.Status)
	assert.False(t, run.CreatedAt.IsZero())

	found, err := db.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunQueued, found.Status)
	assert.Equal(t, "python", found.Language)
	assert.Equal(t, "print('hi')", found.Code)
	assert.Nil(t, found.FinishedAt)
}

func TestCreateRun_RequiresID(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateRun(context.Background(), &model.Run{Language: "python"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestUpdateRun_StoresOutcome(t *testing.T) {
	db := newTestDB(t)
	run := newQueuedRun("cpp")
	require.NoError(t, db.CreateRun(context.Background(), run))

	finished := time.Now()
	run.Status = model.RunCompleted
	run.Stdout = "hello\n"
	run.Stderr = "warn\n"
	run.ExitCode = 3
	run.TimedOut = true
	run.Truncated = true
	run.Report = "hello\n\nErrors: warn\n\nProcess finished with exit code 3"
	run.DurationMS = 42
	run.FinishedAt = &finished
	require.NoError(t, db.UpdateRun(context.Background(), run))

	found, err := db.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, found.Status)
	assert.Equal(t, "hello\n", found.Stdout)
	assert.Equal(t, "warn\n", found.Stderr)
	assert.Equal(t, 3, found.ExitCode)
	assert.True(t, found.TimedOut)
	assert.True(t, found.Truncated)
	assert.Equal(t, run.Report, found.Report)
	assert.Equal(t, int64(42), found.DurationMS)
	require.NotNil(t, found.FinishedAt)
	assert.WithinDuration(t, finished, *found.FinishedAt, time.Second)
	assert.True(t, found.Finished())
}

func TestUpdateRun_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateRun(context.Background(), newQueuedRun("python"))
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGetRun_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestListRuns_NewestFirstWithFilter(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().Add(-time.Hour)

	langs := []string{"python", "java", "python"}
	ids := make([]string, len(langs))
	for i, lang := range langs {
		run := newQueuedRun(lang)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.CreateRun(context.Background(), run))
		ids[i] = run.ID
	}

	all, err := db.ListRuns(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	python, err := db.ListRuns(context.Background(), repository.ListOptions{Language: "python"})
	require.NoError(t, err)
	assert.Len(t, python, 2)

	page, err := db.ListRuns(context.Background(), repository.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}
