package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
	"github.com/satriadp/supervision-api/pkg/export"
)

// ExportService renders case snapshots into downloadable documents.
// When storageDir is set, every rendered document is also archived there.
type ExportService struct {
	cases      *CaseService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	storageDir string
	logger     *zap.Logger
}

// NewExportService constructs ExportService. An empty storageDir disables
// the on-disk archive.
func NewExportService(cases *CaseService, csv *export.CSVExporter, pdf *export.PDFExporter, storageDir string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{cases: cases, csv: csv, pdf: pdf, storageDir: storageDir, logger: logger}
}

// archive writes a rendered document to the storage dir, best effort.
func (s *ExportService) archive(filename string, payload []byte) {
	if s.storageDir == "" {
		return
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		s.logger.Warn("export archive dir unavailable", zap.Error(err))
		return
	}
	path := filepath.Join(s.storageDir, filename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		s.logger.Warn("export archive write failed", zap.String("path", path), zap.Error(err))
	}
}

func snapshotDataset(snapshot *models.CaseSnapshot) export.Dataset {
	data := export.Dataset{Headers: []string{"Evaluator", "Grade", "Feedback", "Recorded"}}
	for _, grade := range snapshot.Grades {
		feedback := ""
		if grade.Feedback != nil {
			feedback = *grade.Feedback
		}
		data.Rows = append(data.Rows, map[string]string{
			"Evaluator": grade.EvaluatorID,
			"Grade":     fmt.Sprintf("%.1f", grade.Value),
			"Feedback":  feedback,
			"Recorded":  grade.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return data
}

func snapshotFacts(snapshot *models.CaseSnapshot) [][2]string {
	facts := [][2]string{
		{"Student", fmt.Sprintf("%s (%s)", snapshot.StudentName, snapshot.StudentNIM)},
		{"Title", snapshot.Title},
		{"Track", string(snapshot.Kind)},
		{"Period", snapshot.PeriodName},
		{"Supervisor", snapshot.Supervisor},
		{"Status", string(snapshot.Status)},
	}
	if snapshot.DefenseDate != nil {
		facts = append(facts, [2]string{"Defense", snapshot.DefenseDate.Format(time.RFC1123)})
	}
	if snapshot.FinalGrade != nil {
		facts = append(facts, [2]string{"Final grade", fmt.Sprintf("%.1f", *snapshot.FinalGrade)})
	}
	return facts
}

// RenderPDF produces the grade transcript PDF for one case.
func (s *ExportService) RenderPDF(ctx context.Context, actor models.Actor, caseKind models.CaseKind, caseID string) ([]byte, string, error) {
	snapshot, err := s.cases.Snapshot(ctx, actor, caseKind, caseID)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render("Supervision Case Report", snapshotFacts(snapshot), snapshotDataset(snapshot))
	if err != nil {
		return nil, "", appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render pdf")
	}
	filename := fmt.Sprintf("case-%s.pdf", snapshot.CaseID)
	s.archive(filename, payload)
	s.logger.Info("case exported", zap.String("case_id", snapshot.CaseID), zap.String("format", "pdf"))
	return payload, filename, nil
}

// RenderCSV produces the grade table CSV for one case.
func (s *ExportService) RenderCSV(ctx context.Context, actor models.Actor, caseKind models.CaseKind, caseID string) ([]byte, string, error) {
	snapshot, err := s.cases.Snapshot(ctx, actor, caseKind, caseID)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.RenderReport(snapshotFacts(snapshot), snapshotDataset(snapshot))
	if err != nil {
		return nil, "", appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render csv")
	}
	filename := fmt.Sprintf("case-%s.csv", snapshot.CaseID)
	s.archive(filename, payload)
	s.logger.Info("case exported", zap.String("case_id", snapshot.CaseID), zap.String("format", "csv"))
	return payload, filename, nil
}
