package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gymflow/gymflow-api/internal/models"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
	"github.com/gymflow/gymflow-api/pkg/export"
)

type rosterReader interface {
	ListEnrolledByClass(ctx context.Context, classID int64) ([]models.BookingDetail, error)
}

// RosterExport is a rendered class roster ready for download.
type RosterExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// RosterService renders the enrolled roster of a class as CSV or PDF for
// front-desk printouts.
type RosterService struct {
	bookings rosterReader
	classes  classReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(bookings rosterReader, classes classReader, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		bookings: bookings,
		classes:  classes,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Export renders the roster in the requested format ("csv" or "pdf").
func (s *RosterService) Export(ctx context.Context, classID int64, format string) (*RosterExport, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	roster, err := s.bookings.ListEnrolledByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Member ID", "Member", "Booked At"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, b := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Member ID": strconv.FormatInt(b.MemberID, 10),
			"Member":    b.MemberName,
			"Booked At": b.BookedAt.Format(time.RFC3339),
		})
	}

	base := fmt.Sprintf("roster-class-%d-%s", classID, class.StartTime.Format("20060102-1504"))
	switch format {
	case "pdf":
		title := fmt.Sprintf("%s - %s", class.ClassTypeName, class.StartTime.Format("2006-01-02 15:04"))
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported roster format %q", format))
	}
}
