package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupanel/attendance-core/internal/models"
	"github.com/edupanel/attendance-core/pkg/importer"
)

func rosterSheet() importer.Sheet {
	return importer.Sheet{
		Headers: models.StudentImportColumns,
		Rows: []models.StudentImportRow{
			{Row: 2, ExternalCode: "NEW001", Name: "Jean Dupont", Email: "jean.dupont@example.com", GroupID: "grp-1"},
			{Row: 3, ExternalCode: "new001", Name: "Marc Weber", Email: "marc.weber@example.com", GroupID: "grp-1"},
			{Row: 4, ExternalCode: "NEW003", Name: "Lena Roth", Email: "lena.roth@example.com", GroupID: "grp-1"},
		},
	}
}

func TestProcessImportMissingColumn(t *testing.T) {
	f := newFixture(t, false)

	sheet := rosterSheet()
	sheet.Headers = []string{"external_code", "name", "email"}
	res := f.svc.ProcessImport(context.Background(), sheet, seedSnapshot(), "admin")
	require.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "group_id", res.Errors[0].Field)
	assert.Empty(t, res.Rows)
}

func TestProcessImportAtomicReject(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res := f.svc.ProcessImport(ctx, rosterSheet(), seedSnapshot(), "admin")
	require.False(t, res.Success)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Rows, 3)

	// only row 3 carries errors; rows 2 and 4 are valid but still not created
	assert.Empty(t, res.Rows[0].Errors)
	require.Len(t, res.Rows[1].Errors, 1)
	assert.Equal(t, "externalCode", res.Rows[1].Errors[0].Field)
	assert.Contains(t, res.Rows[1].Errors[0].Message, "first used in row 2")
	assert.Empty(t, res.Rows[2].Errors)
	for _, rr := range res.Rows {
		assert.False(t, rr.Success)
	}

	snap, err := f.svc.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Students)
}

func TestProcessImportPartial(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	res := f.svc.ProcessImport(ctx, rosterSheet(), seedSnapshot(), "admin")
	require.False(t, res.Success) // one row still failed
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)

	require.NotNil(t, res.AuditEntry)
	assert.Equal(t, models.AuditActionImport, res.AuditEntry.Action)
	assert.Equal(t, 2, res.AuditEntry.Details["created"])

	snap, err := f.svc.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.NotNil(t, snap.StudentByExternalCode("new001", ""))
	assert.NotNil(t, snap.StudentByExternalCode("new003", ""))
}

func TestProcessImportCleanBatch(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	sheet := rosterSheet()
	sheet.Rows[1].ExternalCode = "NEW002"
	res := f.svc.ProcessImport(ctx, sheet, seedSnapshot(), "admin")
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 0, res.Failed)
	for _, rr := range res.Rows {
		assert.True(t, rr.Success)
		require.NotNil(t, rr.Data)
	}
}

func TestProcessImportUnknownGroup(t *testing.T) {
	f := newFixture(t, true)

	sheet := importer.Sheet{
		Headers: models.StudentImportColumns,
		Rows: []models.StudentImportRow{
			{Row: 2, ExternalCode: "NEW010", Name: "Ana Silva", Email: "ana.silva@example.com", GroupID: "nope"},
		},
	}
	res := f.svc.ProcessImport(context.Background(), sheet, seedSnapshot(), "admin")
	require.False(t, res.Success)
	assert.Equal(t, 0, res.Created)
	require.Len(t, res.Rows, 1)
	require.Len(t, res.Rows[0].Errors, 1)
	assert.Equal(t, "groupId", res.Rows[0].Errors[0].Field)
}

func TestAdmitImportFile(t *testing.T) {
	f := newFixture(t, false)

	errs := f.svc.AdmitImportFile("roster.xlsx", 1024,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	assert.Empty(t, errs)

	errs = f.svc.AdmitImportFile("roster.exe", 1024, "application/octet-stream")
	require.Len(t, errs, 1)
	assert.Equal(t, "file", errs[0].Field)

	errs = f.svc.AdmitImportFile("huge.xlsx", 50*1024*1024,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.Len(t, errs, 1)
}
