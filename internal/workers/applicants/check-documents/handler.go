// internal/workers/applicants/check-documents/handler.go
package checkdocuments

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/common/validation"
	"visa-tracker/internal/documents"
)

const TaskType = "check-documents"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["studentName"],
	"properties": {
		"studentName": {"type": "string", "minLength": 1}
	}
}`)

type Service interface {
	Documents(ctx context.Context, name string) (documents.Checklist, error)
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
	return &Input{StudentName: strings.TrimSpace(vars["studentName"].(string))}, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	checklist, err := h.service.Documents(ctx, input.StudentName)
	if err != nil {
		return nil, err
	}

	out := &Output{
		StudentName: checklist.StudentName,
		Complete:    checklist.Complete(),
		Present:     []string{},
		Missing:     []string{},
		Unknown:     []string{},
		Items:       checklist.Items,
	}
	for _, it := range checklist.Items {
		switch it.Status {
		case documents.StatusPresent:
			out.Present = append(out.Present, it.Type)
		case documents.StatusMissing:
			out.Missing = append(out.Missing, it.Type)
		default:
			out.Unknown = append(out.Unknown, it.Type)
		}
	}

	if len(out.Unknown) > 0 {
		h.logger.Warn("document check incomplete", map[string]interface{}{
			"studentName": out.StudentName,
			"unknown":     out.Unknown,
		})
	}
	h.logger.Info("documents checked", map[string]interface{}{
		"studentName": out.StudentName,
		"complete":    out.Complete,
		"missing":     len(out.Missing),
	})
	return out, nil
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
