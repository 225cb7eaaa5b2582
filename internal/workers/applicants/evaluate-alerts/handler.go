// internal/workers/applicants/evaluate-alerts/handler.go
package evaluatealerts

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/common/validation"
	"visa-tracker/internal/rules"
)

const TaskType = "evaluate-alerts"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"ruleId": {"type": "string"}
	}
}`)

// Service is the part of the tracker this worker needs.
type Service interface {
	Alerts(ctx context.Context) (rules.Report, error)
	Alert(ctx context.Context, ruleID string) (rules.Result, error)
	Now() time.Time
}

type Handler struct {
	config       *Config
	service      Service
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, service Service, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job)
	if err == nil {
		var output *Output
		output, err = h.execute(ctx, input)
		if err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func parseInput(job entities.Job) (*Input, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidInputError("parse job variables: " + err.Error())
	}
	if err := inputSchema.Check(vars); err != nil {
		return nil, err
	}
	input := &Input{}
	if id, ok := vars["ruleId"].(string); ok {
		input.RuleID = id
	}
	return input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var results []rules.Result
	evaluatedAt := h.service.Now()

	if input.RuleID != "" {
		res, err := h.service.Alert(ctx, input.RuleID)
		if err != nil {
			return nil, err
		}
		results = []rules.Result{res}
	} else {
		report, err := h.service.Alerts(ctx)
		if err != nil {
			return nil, err
		}
		results = report.Results
		evaluatedAt = report.EvaluatedAt
	}

	out := &Output{
		EvaluatedAt: evaluatedAt.Format(time.RFC3339),
		Counts:      make(map[string]int, len(results)),
		Rules:       make([]RuleSummary, 0, len(results)),
	}
	for _, res := range results {
		out.Total += res.Count
		out.Counts[res.RuleID] = res.Count
		out.Rules = append(out.Rules, RuleSummary{
			RuleID:   res.RuleID,
			Severity: string(res.Severity),
			Count:    res.Count,
			Names:    names(res, h.config.MaxNames),
		})
	}
	out.HasAlerts = out.Total > 0

	h.logger.Info("alerts evaluated", map[string]interface{}{
		"rules": len(results),
		"total": out.Total,
	})
	return out, nil
}

func names(res rules.Result, max int) []string {
	out := make([]string, 0, len(res.Records))
	for _, a := range res.Records {
		if max > 0 && len(out) == max {
			break
		}
		out = append(out, a.StudentName)
	}
	return out
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute is exposed for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
