// internal/workers/applicants/update-applicant/handler.go
package updateapplicant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/common/validation"
	"visa-tracker/internal/models"
)

const TaskType = "update-applicant"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["studentName", "fields"],
	"properties": {
		"studentName": {"type": "string", "minLength": 1},
		"table": {"type": "string"},
		"fields": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string"}
		}
	}
}`)

type Service interface {
	Get(ctx context.Context, name string) (models.Applicant, error)
	Update(ctx context.Context, table, name string, rec models.Applicant) (models.Applicant, error)
	Now() time.Time
}

type Handler struct {
	config       *Config
	service      Service
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	columns      map[string]string // normalized header -> canonical header
}

func NewHandler(config *Config, service Service, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	columns := make(map[string]string)
	for _, c := range models.Columns() {
		columns[models.NormalizeHeader(c)] = c
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
		columns:      columns,
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

	input := &Input{
		StudentName: vars["studentName"].(string),
		Fields:      map[string]string{},
	}
	if table, ok := vars["table"].(string); ok {
		input.Table = table
	}
	for k, v := range vars["fields"].(map[string]interface{}) {
		input.Fields[k] = v.(string)
	}
	return input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	current, err := h.service.Get(ctx, input.StudentName)
	if err != nil {
		return nil, err
	}

	row := models.SerializeRecord(current)
	var unknown []string
	for k, v := range input.Fields {
		col, ok := h.columns[models.NormalizeHeader(k)]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		row[col] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown columns: %s", strings.Join(unknown, ", ")))
	}

	patched := models.ParseRecord(row)
	patched.Table = current.Table
	saved, err := h.service.Update(ctx, input.Table, current.StudentName, patched)
	if err != nil {
		return nil, err
	}

	h.logger.Info("applicant updated", map[string]interface{}{
		"studentName": saved.StudentName,
		"fields":      len(input.Fields),
	})
	return &Output{
		StudentName: saved.StudentName,
		Table:       saved.Table,
		Renamed:     saved.StudentName != current.StudentName,
		Stage:       saved.Stage,
		UpdatedAt:   h.service.Now().Format(time.RFC3339),
	}, nil
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
