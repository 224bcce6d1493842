package controllers

import (
	"net/http"
	"strings"

	"github.com/avilaromero/clientpulse-backend/api/responses"
	"github.com/avilaromero/clientpulse-backend/internal/reports"
	pkgerrors "github.com/avilaromero/clientpulse-backend/pkg/errors"
	"github.com/avilaromero/clientpulse-backend/pkg/logger"
)

// ReportsDashboard returns the org's aggregate dashboard view.
func ReportsDashboard(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Dashboard(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ReportsMetrics returns a bucketed time series for the requested metric.
func ReportsMetrics(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		orgID, err := orgFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := reports.MetricsQuery{
			Type:      strings.TrimSpace(r.URL.Query().Get("type")),
			Range:     strings.TrimSpace(r.URL.Query().Get("range")),
			StartDate: strings.TrimSpace(r.URL.Query().Get("startDate")),
			EndDate:   strings.TrimSpace(r.URL.Query().Get("endDate")),
		}

		report, err := svc.Metrics(r.Context(), orgID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
