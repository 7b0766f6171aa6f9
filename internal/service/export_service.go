package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-points-api/internal/models"
	"github.com/noah-isme/class-points-api/pkg/export"
	"github.com/noah-isme/class-points-api/pkg/storage"
)

type leaderboardSource interface {
	Leaderboard(ctx context.Context, classIDs []string, weekStart string) (*models.Leaderboard, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix      string
	ResultTTL      time.Duration
	DefaultClasses []string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders leaderboards to files and signs download links.
type ExportService struct {
	leaderboard leaderboardSource
	storage     fileStorage
	csv         datasetRenderer
	pdf         datasetRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(leaderboard leaderboardSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		leaderboard: leaderboard,
		storage:     files,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Generate computes the leaderboard for job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	classIDs := job.Params.ClassIDs
	if len(classIDs) == 0 {
		classIDs = s.cfg.DefaultClasses
	}
	board, err := s.leaderboard.Leaderboard(ctx, classIDs, job.Params.WeekStart)
	if err != nil {
		return nil, err
	}
	dataset := LeaderboardDataset(board)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("leaderboard export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Params.Format)),
		zap.Int("classes", len(board.Entries)),
		zap.Int("failures", len(board.Failures)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// LeaderboardDataset flattens a leaderboard into table rows. Failed classes
// are listed after the ranked ones so they never vanish from the report.
func LeaderboardDataset(board *models.Leaderboard) export.Dataset {
	dataset := export.Dataset{
		Title:    "Class Leaderboard",
		Subtitle: fmt.Sprintf("Week %s to %s", board.WeekStart, board.WeekEnd),
		Headers:  []string{"Rank", "Class", "Total Points", "Full Days", "Max Streak", "Completion %", "Quiz Avg", "Top Performer", "Notes"},
	}
	for _, entry := range board.Entries {
		quiz := "-"
		if entry.QuizAverage != nil {
			quiz = strconv.FormatFloat(*entry.QuizAverage, 'f', 2, 64)
		}
		top := "-"
		if len(entry.Students) > 0 {
			top = fmt.Sprintf("%s (%d)", entry.Students[0].StudentID, entry.Students[0].Points)
		}
		dataset.Rows = append(dataset.Rows, []string{
			strconv.Itoa(entry.Rank),
			entry.ClassID,
			strconv.Itoa(entry.TotalPoints),
			strconv.Itoa(entry.FullSubmissionDays),
			strconv.Itoa(entry.MaxStreak),
			strconv.Itoa(entry.CompletionPercent),
			quiz,
			top,
			"",
		})
	}
	for _, failure := range board.Failures {
		dataset.Rows = append(dataset.Rows, []string{"-", failure.ClassID, "-", "-", "-", "-", "-", "-", failure.Message})
	}
	return dataset
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, falling back to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("leaderboard_%s_%s.%s", sanitizeFilename(job.Params.WeekStart), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
