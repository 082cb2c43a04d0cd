package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	kpool "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/conn/db/postgres/pool"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
)

// HealthzHandler reports liveness, backed by a database ping.
func HealthzHandler(pool kpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

type submissionStatusResponse struct {
	SubmissionId  string         `json:"submissionId"`
	Status        string         `json:"status"`
	StatusMessage string         `json:"statusMessage,omitempty"`
	Summary       map[string]int `json:"processingStatusSummary"`
}

// GetSubmissionStatusHandler serves a read-only view of one submission's
// progress: its overall status and the per-state counts of its submittables.
func GetSubmissionStatusHandler(
	submissions subdb.Interface,
	statuses statusdb.Interface,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		submissionId := c.Param("submissionId")
		ctx := c.Request().Context()

		submission, err := submissions.Get(ctx, submissionId)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "no such submission")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		summary, err := statuses.Summary(ctx, submissionId)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		resp := submissionStatusResponse{
			SubmissionId:  submission.Id,
			Status:        submission.Status.String(),
			StatusMessage: submission.StatusMessage,
			Summary:       map[string]int{},
		}
		for state, count := range summary {
			resp.Summary[state.String()] = count
		}

		c.Response().Header().Add("Content-Type", "application/json")
		return c.JSON(http.StatusOK, resp)
	}
}
