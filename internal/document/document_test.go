package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	nonTerminal := []Status{
		StatusUploaded, StatusQueued, StatusProcessing,
		StatusChunking, StatusVectorizing, StatusRetrying,
	}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUploaded, StatusQueued, true},
		{StatusUploaded, StatusProcessing, false},
		{StatusQueued, StatusProcessing, true},
		{StatusQueued, StatusCancelled, true},
		{StatusProcessing, StatusChunking, true},
		{StatusChunking, StatusVectorizing, true},
		{StatusVectorizing, StatusCompleted, true},
		{StatusProcessing, StatusRetrying, true},
		{StatusChunking, StatusRetrying, true},
		{StatusVectorizing, StatusRetrying, true},
		{StatusProcessing, StatusFailed, true},
		{StatusRetrying, StatusQueued, true},
		{StatusRetrying, StatusProcessing, false},
		// Terminal states only re-admit via explicit retry.
		{StatusCompleted, StatusQueued, false},
		{StatusFailed, StatusQueued, true},
		{StatusCancelled, StatusQueued, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusProcessing, false},
		// Happy path cannot skip stages.
		{StatusProcessing, StatusVectorizing, false},
		{StatusProcessing, StatusCompleted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestApplyUpdate_StatusAndTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{ID: "d1", Status: StatusUploaded}

	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusQueued)}, now))
	assert.Equal(t, StatusQueued, rec.Status)
	assert.Nil(t, rec.StartedAt)

	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusProcessing), Progress: Ptr(10)}, now))
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, now, *rec.StartedAt)
	assert.Equal(t, 10, rec.Progress)

	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusChunking), Progress: Ptr(30)}, now))
	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusVectorizing), Progress: Ptr(60)}, now))
	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusCompleted), Progress: Ptr(100)}, now))
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 100, rec.Progress)
}

func TestApplyUpdate_InvalidTransition(t *testing.T) {
	rec := &Record{ID: "d1", Status: StatusCompleted}
	err := applyUpdate(rec, UpdateFields{Status: Ptr(StatusProcessing)}, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestApplyUpdate_UnknownStatus(t *testing.T) {
	rec := &Record{ID: "d1", Status: StatusUploaded}
	err := applyUpdate(rec, UpdateFields{Status: Ptr(Status("EXPLODED"))}, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyUpdate_ProgressMonotonic(t *testing.T) {
	rec := &Record{ID: "d1", Status: StatusChunking, Progress: 30}

	err := applyUpdate(rec, UpdateFields{Progress: Ptr(20)}, time.Now())
	require.ErrorIs(t, err, ErrProgressRegression)
	assert.Equal(t, 30, rec.Progress)

	// Re-queueing resets the scale, so 0 is legal again.
	rec.Status = StatusRetrying
	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusQueued)}, time.Now()))
	assert.Equal(t, 0, rec.Progress)
}

func TestApplyUpdate_QueuedClearsRunState(t *testing.T) {
	now := time.Now().UTC()
	started := now.Add(-time.Minute)
	rec := &Record{
		ID:          "d1",
		Status:      StatusFailed,
		Progress:    60,
		Error:       "embedding error: boom",
		StartedAt:   &started,
		CompletedAt: &now,
	}

	require.NoError(t, applyUpdate(rec, UpdateFields{Status: Ptr(StatusQueued)}, now))
	assert.Equal(t, 0, rec.Progress)
	assert.Empty(t, rec.Error)
	assert.Nil(t, rec.StartedAt)
	assert.Nil(t, rec.CompletedAt)
}

func TestApplyUpdate_ErrorSetAndClear(t *testing.T) {
	rec := &Record{ID: "d1", Status: StatusProcessing}

	require.NoError(t, applyUpdate(rec, UpdateFields{Error: Ptr("extraction error: bad file")}, time.Now()))
	assert.Equal(t, "extraction error: bad file", rec.Error)

	require.NoError(t, applyUpdate(rec, UpdateFields{Error: Ptr("")}, time.Now()))
	assert.Empty(t, rec.Error)
}

func TestRecord_Clone(t *testing.T) {
	now := time.Now().UTC()
	rec := &Record{ID: "d1", Status: StatusProcessing, StartedAt: &now}

	c := rec.Clone()
	c.Status = StatusFailed
	*c.StartedAt = now.Add(time.Hour)

	assert.Equal(t, StatusProcessing, rec.Status)
	assert.Equal(t, now, *rec.StartedAt)
}
