package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
)

type leaderboardServiceStub struct {
	board     *models.Leaderboard
	summary   *models.ClassWeekSummary
	cacheHit  bool
	days      []models.DayBreakdown
	top       []models.StudentPoints
	err       error
	classIDs  []string
	weekStart string
	n         int
}

func (s *leaderboardServiceStub) Leaderboard(_ context.Context, classIDs []string, weekStart string) (*models.Leaderboard, error) {
	s.classIDs, s.weekStart = classIDs, weekStart
	return s.board, s.err
}

func (s *leaderboardServiceStub) ComputeClassWeekSummary(_ context.Context, classID, weekStart string) (*models.ClassWeekSummary, bool, error) {
	s.classIDs, s.weekStart = []string{classID}, weekStart
	return s.summary, s.cacheHit, s.err
}

func (s *leaderboardServiceStub) ClassDays(_ context.Context, classID, weekStart string) ([]models.DayBreakdown, error) {
	s.classIDs, s.weekStart = []string{classID}, weekStart
	return s.days, s.err
}

func (s *leaderboardServiceStub) TopPerformers(_ context.Context, classID, weekStart string, n int) ([]models.StudentPoints, error) {
	s.classIDs, s.weekStart, s.n = []string{classID}, weekStart, n
	return s.top, s.err
}

func (s *leaderboardServiceStub) Outcomes() []models.OutcomeRule {
	return []models.OutcomeRule{{Category: models.CategoryHomework, Label: "Submitted on time", StudentPoints: 5, ClassPoints: 3}}
}

func leaderboardRouter(stub *leaderboardServiceStub) *LeaderboardHandler {
	return NewLeaderboardHandler(stub, []string{"class-10-A", "class-10-B"})
}

func TestLeaderboardHandlerRanksRequestedClasses(t *testing.T) {
	stub := &leaderboardServiceStub{board: &models.Leaderboard{
		WeekStart: "2024-09-02",
		Entries:   []models.RankedClass{{Rank: 1, ClassWeekSummary: models.ClassWeekSummary{ClassID: "class-9-A", TotalPoints: 26}}},
		Failures:  []models.ClassFailure{{ClassID: "class-9-B", Code: "STORAGE_UNAVAILABLE"}},
	}}
	router := newTestRouter()
	router.GET("/leaderboard", leaderboardRouter(stub).Leaderboard)

	w := performRequest(router, http.MethodGet, "/leaderboard?week=2024-09-02&class=class-9-A,class-9-B", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"class-9-A", "class-9-B"}, stub.classIDs)
	assert.Equal(t, "2024-09-02", stub.weekStart)

	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 1, env.Meta["failures"])

	var board models.Leaderboard
	decodeData(t, w, &board)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 26, board.Entries[0].TotalPoints)
	require.Len(t, board.Failures, 1)
}

func TestLeaderboardHandlerDefaultsClassesAndRequiresWeek(t *testing.T) {
	stub := &leaderboardServiceStub{board: &models.Leaderboard{}}
	router := newTestRouter()
	router.GET("/leaderboard", leaderboardRouter(stub).Leaderboard)

	w := performRequest(router, http.MethodGet, "/leaderboard?week=2024-09-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"class-10-A", "class-10-B"}, stub.classIDs)

	w = performRequest(router, http.MethodGet, "/leaderboard", nil)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)
}

func TestLeaderboardHandlerClassSummaryReportsCacheHit(t *testing.T) {
	stub := &leaderboardServiceStub{summary: &models.ClassWeekSummary{ClassID: "class-10-A", TotalPoints: 16, MaxStreak: 1}, cacheHit: true}
	router := newTestRouter()
	router.GET("/leaderboard/classes/:id", leaderboardRouter(stub).ClassSummary)

	w := performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A?week=2024-09-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"class-10-A"}, stub.classIDs)

	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var summary models.ClassWeekSummary
	decodeData(t, w, &summary)
	assert.Equal(t, 16, summary.TotalPoints)
}

func TestLeaderboardHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "storage", err: appErrors.Clone(appErrors.ErrStorageUnavailable, "data unavailable for class class-10-A"), status: http.StatusServiceUnavailable},
		{name: "malformed", err: appErrors.ErrMalformedRecord, status: http.StatusUnprocessableEntity},
		{name: "unknown outcome", err: appErrors.ErrUnknownOutcome, status: http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &leaderboardServiceStub{err: tc.err}
			router := newTestRouter()
			router.GET("/leaderboard/classes/:id", leaderboardRouter(stub).ClassSummary)

			w := performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A?week=2024-09-02", nil)
			requireErrorCode(t, w, tc.status, appErrors.FromError(tc.err).Code)
		})
	}
}

func TestLeaderboardHandlerClassDays(t *testing.T) {
	stub := &leaderboardServiceStub{days: []models.DayBreakdown{
		{Date: "2024-09-02", Score: &models.DayScore{ClassID: "class-10-A", Date: "2024-09-02", Total: 9}},
		{Date: "2024-09-03", Error: &models.ClassFailure{ClassID: "class-10-A", Code: "MALFORMED_RECORD"}},
	}}
	router := newTestRouter()
	router.GET("/leaderboard/classes/:id/days", leaderboardRouter(stub).ClassDays)

	w := performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A/days?week=2024-09-02", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var days []models.DayBreakdown
	decodeData(t, w, &days)
	require.Len(t, days, 2)
	assert.Equal(t, 9, days[0].Score.Total)
	assert.Nil(t, days[1].Score)
	assert.Equal(t, "MALFORMED_RECORD", days[1].Error.Code)
}

func TestLeaderboardHandlerTopPerformers(t *testing.T) {
	stub := &leaderboardServiceStub{top: []models.StudentPoints{{StudentID: "s1", Points: 10}}}
	router := newTestRouter()
	router.GET("/leaderboard/classes/:id/top", leaderboardRouter(stub).TopPerformers)

	w := performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A/top?week=2024-09-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, stub.n)

	w = performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A/top?week=2024-09-02&n=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, stub.n)

	w = performRequest(router, http.MethodGet, "/leaderboard/classes/class-10-A/top?week=2024-09-02&n=many", nil)
	requireErrorCode(t, w, http.StatusBadRequest, appErrors.ErrValidation.Code)
}

func TestLeaderboardHandlerOutcomes(t *testing.T) {
	router := newTestRouter()
	router.GET("/outcomes", leaderboardRouter(&leaderboardServiceStub{}).Outcomes)

	w := performRequest(router, http.MethodGet, "/outcomes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules []models.OutcomeRule
	decodeData(t, w, &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, 5, rules[0].StudentPoints)
}
