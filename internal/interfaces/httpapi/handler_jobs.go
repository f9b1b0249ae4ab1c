package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/trace"

	"github.com/clanforge/war-tracker/internal/domain/jobscheduler"
	"github.com/clanforge/war-tracker/internal/usecase"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type internalJobRequest struct {
	DispatchID string `json:"dispatch_id"`
}

type warSweepResultDTO struct {
	State   string `json:"state"`
	WarID   string `json:"warId,omitempty"`
	Stored  bool   `json:"stored"`
	EndTime string `json:"endTime,omitempty"`
}

type leagueSweepResultDTO struct {
	Season        string `json:"season,omitempty"`
	State         string `json:"state"`
	RoundsFetched int    `json:"roundsFetched"`
	WarsStored    int    `json:"warsStored"`
	RoundFailures int    `json:"roundFailures"`
}

type leagueDedupeResultDTO struct {
	Removed int `json:"removed"`
}

func (h *Handler) RunWarSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunWarSweepJob")
	defer span.End()

	if h.scheduler == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scheduler.RunWarSweepNow(ctx)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "sweep-war",
			JobPath:      "/v1/internal/jobs/sweep-war",
			Stream:       jobscheduler.StreamWar,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run war sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "sweep-war",
		JobPath:    "/v1/internal/jobs/sweep-war",
		Stream:     jobscheduler.StreamWar,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, warSweepResultDTO{
		State:   result.State,
		WarID:   result.WarID,
		Stored:  result.Stored,
		EndTime: formatTime(result.EndTime),
	})
}

func (h *Handler) RunLeagueSweepJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLeagueSweepJob")
	defer span.End()

	if h.scheduler == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scheduler.RunLeagueSweepNow(ctx)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "sweep-league",
			JobPath:      "/v1/internal/jobs/sweep-league",
			Stream:       jobscheduler.StreamLeague,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run league sweep job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "sweep-league",
		JobPath:    "/v1/internal/jobs/sweep-league",
		Stream:     jobscheduler.StreamLeague,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, leagueSweepResultDTO{
		Season:        result.Season,
		State:         result.State,
		RoundsFetched: result.RoundsFetched,
		WarsStored:    result.WarsStored,
		RoundFailures: result.RoundFailures,
	})
}

func (h *Handler) RunLeagueDedupeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLeagueDedupeJob")
	defer span.End()

	if h.leagueQueries == nil {
		writeError(ctx, w, fmt.Errorf("%w: league queries are not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	removed, err := h.leagueQueries.Dedupe(ctx)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "dedupe-league",
			JobPath:      "/v1/internal/jobs/dedupe-league",
			Stream:       jobscheduler.StreamLeague,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run league dedupe job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "dedupe-league",
		JobPath:    "/v1/internal/jobs/dedupe-league",
		Stream:     jobscheduler.StreamLeague,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, leagueDedupeResultDTO{Removed: removed})
}

func decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req internalJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobRequest{}, nil
		}
		return internalJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, req internalJobRequest, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = h.buildManualDispatchID(event.JobName, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildInternalJobPayload(req internalJobRequest) map[string]any {
	payload := map[string]any{}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func (h *Handler) buildManualDispatchID(jobName string, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	if h.idGen != nil {
		if generated, err := h.idGen.NewID(); err == nil {
			return "manual-" + jobName + "-" + generated
		}
	}
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + jobName + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
