// internal/workers/applicants/add-applicant/handler.go
package addapplicant

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/common/validation"
	"visa-tracker/internal/store"
)

const TaskType = "add-applicant"

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["firstName", "lastName"],
	"properties": {
		"firstName": {"type": "string", "minLength": 1, "maxLength": 100},
		"lastName": {"type": "string", "minLength": 1, "maxLength": 100},
		"chosenSchool": {"type": "string", "maxLength": 200},
		"table": {"type": "string"}
	}
}`)

type Service interface {
	Add(ctx context.Context, table, first, last, school string) (store.AppendResult, error)
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

	input := &Input{
		FirstName: vars["firstName"].(string),
		LastName:  vars["lastName"].(string),
	}
	if school, ok := vars["chosenSchool"].(string); ok {
		input.ChosenSchool = school
	}
	if table, ok := vars["table"].(string); ok {
		input.Table = table
	}
	return input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Add(ctx, input.Table, input.FirstName, input.LastName, input.ChosenSchool)
	if err != nil {
		return nil, err
	}

	h.logger.Info("applicant added", map[string]interface{}{
		"studentName": res.Record.StudentName,
		"duplicate":   res.Duplicate,
	})
	return &Output{
		StudentName:  res.Record.StudentName,
		Stage:        res.Record.Stage,
		Duplicate:    res.Duplicate,
		RegisteredAt: res.Record.RegistrationDate.Time.Format(time.RFC3339),
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
