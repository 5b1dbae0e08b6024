package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/attendance-core/internal/models"
)

func TestRecordAbsence(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res := f.svc.RecordAbsence(ctx, models.AbsenceRecord{
		StudentID:     "stu-1",
		Date:          testClock.AddDate(0, 0, -2),
		DurationHours: 3,
	}, seedSnapshot(), "recorder")
	require.True(t, res.Success)

	created, ok := res.Data.(models.AbsenceRecord)
	require.True(t, ok)
	assert.Equal(t, "recorder", created.RecordedBy)
	assert.Equal(t, testClock, created.RecordedAt)
	assert.Equal(t, testClock.Add(24*time.Hour), created.RollbackDeadline)
	assert.True(t, created.RollbackOpen)
}

func TestRecordAbsenceDuplicateDate(t *testing.T) {
	f := newFixture(t, false)

	// abs-1 already covers this student on this date
	res := f.svc.RecordAbsence(context.Background(), models.AbsenceRecord{
		StudentID:     "stu-1",
		Date:          testClock.AddDate(0, 0, -1),
		DurationHours: 2,
	}, seedSnapshot(), "recorder")
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "date", res.Errors[0].Field)
}

func TestRollbackAbsence(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res := f.svc.RollbackAbsence(ctx, "abs-1", seedSnapshot(), "recorder")
	require.True(t, res.Success)
	require.NotNil(t, res.AuditEntry)
	assert.Equal(t, models.AuditActionRollback, res.AuditEntry.Action)

	snap, err := f.svc.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.AbsenceByID("abs-1"))
}

func TestRollbackAbsenceWrongActor(t *testing.T) {
	f := newFixture(t, false)

	res := f.svc.RollbackAbsence(context.Background(), "abs-1", seedSnapshot(), "someone-else")
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "recorded_by", res.Errors[0].Field)

	// the record is untouched
	snap, err := f.svc.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Absences)
}

func TestRollbackAbsenceExpiredWindow(t *testing.T) {
	f := newFixture(t, false)
	f.advance(48 * time.Hour)

	res := f.svc.RollbackAbsence(context.Background(), "abs-1", seedSnapshot(), "recorder")
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "rollback_deadline", res.Errors[0].Field)
}

func TestDeleteAbsenceAfterWindow(t *testing.T) {
	f := newFixture(t, false)
	f.advance(48 * time.Hour)
	ctx := context.Background()

	// rollback is closed, but an administrative delete still works
	res := f.svc.DeleteAbsence(ctx, "abs-1", seedSnapshot(), "admin")
	require.True(t, res.Success)

	snap, err := f.svc.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.AbsenceByID("abs-1"))
}

func TestUpdateAbsencePreservesRecordingMetadata(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	snap := seedSnapshot()

	candidate := snap.Absences[0]
	candidate.Justified = true
	candidate.RecordedBy = "forged" // must not stick

	res := f.svc.UpdateAbsence(ctx, candidate, snap, "admin", 0)
	require.True(t, res.Success)

	data, ok := res.Data.(models.AbsenceRecord)
	require.True(t, ok)
	assert.True(t, data.Justified)
	assert.Equal(t, "recorder", data.RecordedBy)
}
