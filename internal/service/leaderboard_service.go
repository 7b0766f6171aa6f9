package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

// SubmissionReader is the read side of the external submission store.
type SubmissionReader interface {
	LoadSubmissions(ctx context.Context, classID string, week models.DateRange) ([]models.SubmissionRecord, error)
	EnrolledStudents(ctx context.Context, classID string) ([]string, error)
}

// LeaderboardConfig tunes aggregation.
type LeaderboardConfig struct {
	WeekDays     int
	ClassBonus   int
	Workers      int
	ClassTimeout time.Duration
	CacheTTL     time.Duration
}

// LeaderboardService computes class-week summaries and ranks classes.
type LeaderboardService struct {
	reader     SubmissionReader
	catalog    *OutcomeCatalog
	aggregator *DailyAggregator
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        LeaderboardConfig
	now        func() time.Time
}

// NewLeaderboardService constructs the service.
func NewLeaderboardService(reader SubmissionReader, catalog *OutcomeCatalog, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg LeaderboardConfig) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultOutcomeCatalog()
	}
	if cfg.WeekDays <= 0 || cfg.WeekDays > 7 {
		cfg.WeekDays = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ClassTimeout <= 0 {
		cfg.ClassTimeout = 10 * time.Second
	}
	return &LeaderboardService{
		reader:     reader,
		catalog:    catalog,
		aggregator: NewDailyAggregator(catalog, cfg.ClassBonus),
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Outcomes lists the catalog in display order.
func (s *LeaderboardService) Outcomes() []models.OutcomeRule {
	return s.catalog.Rules()
}

// Week resolves weekStart into the configured run of school days.
func (s *LeaderboardService) Week(weekStart string) (models.DateRange, error) {
	week, err := models.NewWeekRange(weekStart, s.cfg.WeekDays)
	if err != nil {
		return models.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "weekStart must be YYYY-MM-DD")
	}
	return week, nil
}

// ComputeClassWeekSummary aggregates one class over the week starting at
// weekStart. The bool reports whether the summary came from cache.
func (s *LeaderboardService) ComputeClassWeekSummary(ctx context.Context, classID, weekStart string) (*models.ClassWeekSummary, bool, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	week, err := s.Week(weekStart)
	if err != nil {
		return nil, false, err
	}

	key := s.cacheKey(classID, week)
	var cached models.ClassWeekSummary
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	summary, err := s.computeWeek(ctx, classID, week)
	s.metrics.ObserveAggregation(err == nil, time.Since(start))
	if err != nil {
		return nil, false, err
	}

	_ = s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

// TopPerformers returns the n best students of a class for the week.
func (s *LeaderboardService) TopPerformers(ctx context.Context, classID, weekStart string, n int) ([]models.StudentPoints, error) {
	if n <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "n must be positive")
	}
	summary, _, err := s.ComputeClassWeekSummary(ctx, classID, weekStart)
	if err != nil {
		return nil, err
	}
	students := summary.Students
	if n < len(students) {
		students = students[:n]
	}
	return students, nil
}

// Leaderboard computes every class concurrently and ranks the ones that
// succeeded. Classes that fail are reported in Failures and never stop their siblings.
func (s *LeaderboardService) Leaderboard(ctx context.Context, classIDs []string, weekStart string) (*models.Leaderboard, error) {
	week, err := s.Week(weekStart)
	if err != nil {
		return nil, err
	}
	ids := uniqueIDs(classIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one classId is required")
	}

	type classResult struct {
		summary *models.ClassWeekSummary
		err     error
	}
	results := make([]classResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			summary, _, err := s.ComputeClassWeekSummary(ctx, id, weekStart)
			results[i] = classResult{summary: summary, err: err}
			return nil
		})
	}
	_ = g.Wait()

	board := &models.Leaderboard{
		WeekStart:   week.From.Format(models.DateLayout),
		WeekEnd:     week.To.Format(models.DateLayout),
		Failures:    []models.ClassFailure{},
		GeneratedAt: s.now().UTC(),
	}
	summaries := make([]models.ClassWeekSummary, 0, len(ids))
	for i, res := range results {
		if res.err != nil {
			failure := classFailure(ids[i], res.err)
			s.metrics.IncClassFailure(failure.Code)
			s.logger.Warn("class excluded from leaderboard",
				zap.String("class_id", ids[i]),
				zap.String("week_start", board.WeekStart),
				zap.String("code", failure.Code),
				zap.Error(res.err))
			board.Failures = append(board.Failures, failure)
			continue
		}
		summaries = append(summaries, *res.summary)
	}
	board.Entries = RankClasses(summaries)
	return board, nil
}

// ClassDays scores each day of the week independently so one malformed day
// does not hide the others.
func (s *LeaderboardService) ClassDays(ctx context.Context, classID, weekStart string) ([]models.DayBreakdown, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	week, err := s.Week(weekStart)
	if err != nil {
		return nil, err
	}

	enrolled, records, err := s.load(ctx, classID, week)
	if err != nil {
		return nil, err
	}
	byDate, stray := groupByDate(records, week)

	dates := week.Dates()
	out := make([]models.DayBreakdown, 0, len(dates))
	for _, date := range dates {
		entry := models.DayBreakdown{Date: date}
		day, err := s.aggregator.AggregateDay(classID, date, enrolled, byDate[date])
		if err != nil {
			failure := classFailure(classID, err)
			entry.Error = &failure
		} else {
			entry.Score = &day
		}
		out = append(out, entry)
	}
	if len(stray) > 0 {
		s.logger.Warn("records outside the requested week", zap.String("class_id", classID), zap.Int("count", len(stray)))
	}
	return out, nil
}

// InvalidateClass drops cached summaries for classID.
func (s *LeaderboardService) InvalidateClass(ctx context.Context, classID string) {
	pattern := cacheKeyPrefix(classID) + "*"
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *LeaderboardService) computeWeek(ctx context.Context, classID string, week models.DateRange) (*models.ClassWeekSummary, error) {
	enrolled, records, err := s.load(ctx, classID, week)
	if err != nil {
		return nil, err
	}
	byDate, stray := groupByDate(records, week)
	if len(stray) > 0 {
		return nil, appErrors.Withf(appErrors.ErrMalformedRecord, "record %s for class %s has date %q outside the week", stray[0].TaskID, classID, stray[0].Date)
	}

	dates := week.Dates()
	days := make([]models.DayScore, 0, len(dates))
	for _, date := range dates {
		day, err := s.aggregator.AggregateDay(classID, date, enrolled, byDate[date])
		if err != nil {
			appErr := appErrors.FromError(err)
			return nil, appErrors.Wrap(err, appErr.Code, appErr.Status, fmt.Sprintf("class %s on %s: %s", classID, date, appErr.Message))
		}
		days = append(days, day)
	}

	summary := SummarizeWeek(classID, week, days)
	s.logger.Debug("class week aggregated",
		zap.String("class_id", classID),
		zap.String("week_start", summary.WeekStart),
		zap.Int("total_points", summary.TotalPoints),
		zap.Int("records", len(records)))
	return &summary, nil
}

// load performs the single batch read for a class-week under the per-class timeout.
func (s *LeaderboardService) load(ctx context.Context, classID string, week models.DateRange) ([]string, []models.SubmissionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ClassTimeout)
	defer cancel()

	start := time.Now()
	enrolled, err := s.reader.EnrolledStudents(ctx, classID)
	s.metrics.ObserveStoreQuery("enrolled_students", time.Since(start))
	if err != nil {
		return nil, nil, storageError(classID, err)
	}

	start = time.Now()
	records, err := s.reader.LoadSubmissions(ctx, classID, week)
	s.metrics.ObserveStoreQuery("load_submissions", time.Since(start))
	if err != nil {
		return nil, nil, storageError(classID, err)
	}
	return enrolled, records, nil
}

func (s *LeaderboardService) cacheKey(classID string, week models.DateRange) string {
	var b strings.Builder
	b.WriteString(cacheKeyPrefix(classID))
	b.WriteString(week.From.Format(models.DateLayout))
	b.WriteString(":d")
	b.WriteString(strconv.Itoa(s.cfg.WeekDays))
	return b.String()
}

func cacheKeyPrefix(classID string) string {
	return "leaderboard:class:" + classID + ":"
}

// groupByDate buckets records per day; records dated outside the week are returned separately.
func groupByDate(records []models.SubmissionRecord, week models.DateRange) (map[string][]models.SubmissionRecord, []models.SubmissionRecord) {
	byDate := make(map[string][]models.SubmissionRecord)
	var stray []models.SubmissionRecord
	for _, rec := range records {
		if !week.Contains(rec.Date) {
			stray = append(stray, rec)
			continue
		}
		byDate[rec.Date] = append(byDate[rec.Date], rec)
	}
	return byDate, stray
}

func storageError(classID string, err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.WrapAs(appErrors.ErrStorageUnavailable, err, fmt.Sprintf("data unavailable for class %s", classID))
}

func classFailure(classID string, err error) models.ClassFailure {
	appErr := appErrors.FromError(err)
	message := fmt.Sprintf("data unavailable for class %s", classID)
	if appErr.Code != appErrors.ErrStorageUnavailable.Code {
		message = fmt.Sprintf("%s: %s", message, appErr.Message)
	}
	return models.ClassFailure{ClassID: classID, Code: appErr.Code, Message: message}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
