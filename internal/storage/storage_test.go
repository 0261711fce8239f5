package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kennel_media/internal/models"
)

func newStorageWithMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newWithDB(db), mock
}

func sampleUpload() models.Upload {
	return models.Upload{
		ID:             uuid.MustParse("5b0e3f5e-4f7b-4b8e-9c55-0b6f8f0f7e11"),
		ObjectPath:     "/objects/uploads/abc",
		Owner:          "admin-1",
		Visibility:     models.VisibilityPublic,
		Status:         models.UploadStatusAcknowledged,
		AcknowledgedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveUpload(t *testing.T) {
	s, mock := newStorageWithMock(t)
	up := sampleUpload()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+object_uploads.*ON CONFLICT \(object_path\) DO UPDATE`).
		WithArgs(up.ID, up.ObjectPath, up.Owner, "public", up.Status, up.AcknowledgedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveUpload(context.Background(), up))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpload_DBError(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectExec(`INSERT INTO object_uploads`).WillReturnError(errors.New("db down"))

	err := s.SaveUpload(context.Background(), sampleUpload())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`storage\.SaveUpload: .*db down`), err.Error())
}

func TestGetUpload(t *testing.T) {
	s, mock := newStorageWithMock(t)
	up := sampleUpload()

	rows := sqlmock.NewRows([]string{"id", "object_path", "owner", "visibility", "status", "acknowledged_at"}).
		AddRow(up.ID.String(), up.ObjectPath, up.Owner, "public", up.Status, up.AcknowledgedAt)
	mock.ExpectQuery(`(?s)SELECT .* FROM object_uploads WHERE object_path = \$1`).
		WithArgs(up.ObjectPath).
		WillReturnRows(rows)

	got, err := s.GetUpload(context.Background(), up.ObjectPath)
	require.NoError(t, err)
	assert.Equal(t, up, *got)
}

func TestGetUpload_NotFound(t *testing.T) {
	s, mock := newStorageWithMock(t)

	mock.ExpectQuery(`FROM object_uploads WHERE object_path`).
		WithArgs("/objects/uploads/missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetUpload(context.Background(), "/objects/uploads/missing")
	assert.ErrorIs(t, err, models.ErrObjectNotFound)
}

func TestListUploads(t *testing.T) {
	s, mock := newStorageWithMock(t)
	up := sampleUpload()
	up.Status = models.UploadStatusPendingReview
	up.Owner = ""
	up.Visibility = ""

	rows := sqlmock.NewRows([]string{"id", "object_path", "owner", "visibility", "status", "acknowledged_at"}).
		AddRow(up.ID.String(), up.ObjectPath, "", "", up.Status, up.AcknowledgedAt)
	mock.ExpectQuery(`(?s)FROM object_uploads WHERE status = \$1.*LIMIT \$2`).
		WithArgs(models.UploadStatusPendingReview, 20).
		WillReturnRows(rows)

	got, err := s.ListUploads(context.Background(), models.UploadStatusPendingReview, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, up, got[0])
}
