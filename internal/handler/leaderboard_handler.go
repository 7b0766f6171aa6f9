package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-points-api/internal/middleware"
	"github.com/noah-isme/class-points-api/internal/models"
	appErrors "github.com/noah-isme/class-points-api/pkg/errors"
	"github.com/noah-isme/class-points-api/pkg/response"
)

type leaderboardService interface {
	Leaderboard(ctx context.Context, classIDs []string, weekStart string) (*models.Leaderboard, error)
	ComputeClassWeekSummary(ctx context.Context, classID, weekStart string) (*models.ClassWeekSummary, bool, error)
	ClassDays(ctx context.Context, classID, weekStart string) ([]models.DayBreakdown, error)
	TopPerformers(ctx context.Context, classID, weekStart string, n int) ([]models.StudentPoints, error)
	Outcomes() []models.OutcomeRule
}

// LeaderboardHandler serves weekly class rankings and summaries.
type LeaderboardHandler struct {
	service        leaderboardService
	defaultClasses []string
}

// NewLeaderboardHandler constructs the handler. defaultClasses are ranked when
// a request names no class.
func NewLeaderboardHandler(service leaderboardService, defaultClasses []string) *LeaderboardHandler {
	return &LeaderboardHandler{service: service, defaultClasses: defaultClasses}
}

// Leaderboard godoc
// @Summary Weekly class leaderboard
// @Tags Leaderboard
// @Produce json
// @Param week query string true "Week start (YYYY-MM-DD)"
// @Param class query []string false "Class IDs, repeated or comma separated"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Leaderboard(c *gin.Context) {
	week, ok := requireWeek(c)
	if !ok {
		return
	}
	classIDs := queryList(c, "class")
	if len(classIDs) == 0 {
		classIDs = h.defaultClasses
	}
	board, err := h.service.Leaderboard(c.Request.Context(), classIDs, week)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "failures", len(board.Failures))
	response.JSON(c, http.StatusOK, board, middleware.ExtractMeta(c))
}

// ClassSummary godoc
// @Summary Weekly summary for one class
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Class ID"
// @Param week query string true "Week start (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /leaderboard/classes/{id} [get]
func (h *LeaderboardHandler) ClassSummary(c *gin.Context) {
	week, ok := requireWeek(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.ComputeClassWeekSummary(c.Request.Context(), c.Param("id"), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// ClassDays godoc
// @Summary Per-day breakdown for one class
// @Description Days that could not be aggregated carry an error instead of a score.
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Class ID"
// @Param week query string true "Week start (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /leaderboard/classes/{id}/days [get]
func (h *LeaderboardHandler) ClassDays(c *gin.Context) {
	week, ok := requireWeek(c)
	if !ok {
		return
	}
	days, err := h.service.ClassDays(c.Request.Context(), c.Param("id"), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days)
}

// TopPerformers godoc
// @Summary Top students of a class for the week
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Class ID"
// @Param week query string true "Week start (YYYY-MM-DD)"
// @Param n query int false "Number of students" default(3)
// @Success 200 {object} response.Envelope
// @Router /leaderboard/classes/{id}/top [get]
func (h *LeaderboardHandler) TopPerformers(c *gin.Context) {
	week, ok := requireWeek(c)
	if !ok {
		return
	}
	n := 3
	if raw := strings.TrimSpace(c.Query("n")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "n must be an integer"))
			return
		}
		n = parsed
	}
	students, err := h.service.TopPerformers(c.Request.Context(), c.Param("id"), week, n)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Outcomes godoc
// @Summary Outcome catalog
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /outcomes [get]
func (h *LeaderboardHandler) Outcomes(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Outcomes())
}

func requireWeek(c *gin.Context) (string, bool) {
	week := strings.TrimSpace(c.Query("week"))
	if week == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week is required"))
		return "", false
	}
	return week, true
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
