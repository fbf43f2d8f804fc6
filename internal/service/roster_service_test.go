package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow/gymflow-api/internal/models"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type mockRosterReader struct {
	roster []models.BookingDetail
}

func (m *mockRosterReader) ListEnrolledByClass(ctx context.Context, classID int64) ([]models.BookingDetail, error) {
	return m.roster, nil
}

func TestRosterServiceExportCSV(t *testing.T) {
	bookedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	bookings := &mockRosterReader{roster: []models.BookingDetail{
		{Booking: models.Booking{ID: 1, MemberID: 7, BookedAt: bookedAt}, MemberName: "Ada Member"},
	}}
	classes := &mockClassReader{classes: map[int64]*models.ClassDetail{10: futureClass(10, 20)}}
	svc := NewRosterService(bookings, classes, nil)

	result, err := svc.Export(context.Background(), 10, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	content := string(result.Content)
	assert.Contains(t, content, "Member ID,Member,Booked At")
	assert.Contains(t, content, "7,Ada Member,2026-03-10T12:00:00Z")
}

func TestRosterServiceExportPDF(t *testing.T) {
	bookings := &mockRosterReader{roster: []models.BookingDetail{
		{Booking: models.Booking{ID: 1, MemberID: 7}, MemberName: "Ada Member"},
	}}
	classes := &mockClassReader{classes: map[int64]*models.ClassDetail{10: futureClass(10, 20)}}
	svc := NewRosterService(bookings, classes, nil)

	result, err := svc.Export(context.Background(), 10, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Content)
}

func TestRosterServiceExportUnknownFormat(t *testing.T) {
	classes := &mockClassReader{classes: map[int64]*models.ClassDetail{10: futureClass(10, 20)}}
	svc := NewRosterService(&mockRosterReader{}, classes, nil)

	_, err := svc.Export(context.Background(), 10, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceExportClassNotFound(t *testing.T) {
	svc := NewRosterService(&mockRosterReader{}, &mockClassReader{}, nil)

	_, err := svc.Export(context.Background(), 99, "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
