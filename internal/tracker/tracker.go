// Package tracker composes the store adapter, rule engine, query helpers,
// document resolver and notifier into the operations the dashboard and the
// job workers expose. Every call reloads from the store; nothing is held
// between calls.
package tracker

import (
	"context"
	"strings"
	"time"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/documents"
	"visa-tracker/internal/models"
	"visa-tracker/internal/notify"
	"visa-tracker/internal/query"
	"visa-tracker/internal/rules"
	"visa-tracker/internal/store"
)

type Options struct {
	Store        *store.Adapter
	Engine       *rules.Engine
	Agents       query.AgentTable
	Documents    *documents.Resolver // nil when document storage is off
	Notifier     *notify.Notifier    // nil when digests are off
	Tables       []string
	DefaultTable string
	Location     *time.Location
	Logger       logger.Logger
}

type Tracker struct {
	store        *store.Adapter
	engine       *rules.Engine
	agents       query.AgentTable
	docs         *documents.Resolver
	notifier     *notify.Notifier
	tables       []string
	defaultTable string
	loc          *time.Location
	logger       logger.Logger
	now          func() time.Time
}

func New(opts Options) *Tracker {
	if opts.Engine == nil {
		opts.Engine = rules.NewEngine(nil)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultTable == "" && len(opts.Tables) > 0 {
		opts.DefaultTable = opts.Tables[len(opts.Tables)-1]
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Tracker{
		store:        opts.Store,
		engine:       opts.Engine,
		agents:       opts.Agents,
		docs:         opts.Documents,
		notifier:     opts.Notifier,
		tables:       append([]string(nil), opts.Tables...),
		defaultTable: opts.DefaultTable,
		loc:          opts.Location,
		logger:       opts.Logger.WithFields(map[string]interface{}{"component": "tracker"}),
		now:          time.Now,
	}
}

// Now is the clock in the configured location.
func (t *Tracker) Now() time.Time {
	return t.now().In(t.loc)
}

func (t *Tracker) Tables() []string {
	return append([]string(nil), t.tables...)
}

// Load returns the merged, deduplicated collection across all tables.
func (t *Tracker) Load(ctx context.Context) ([]models.Applicant, error) {
	return t.store.LoadAll(ctx, t.tables)
}

func (t *Tracker) List(ctx context.Context, f query.Filter) ([]models.Applicant, error) {
	records, err := t.Load(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(records), nil
}

// Get finds one applicant by StudentName.
func (t *Tracker) Get(ctx context.Context, name string) (models.Applicant, error) {
	records, err := t.Load(ctx)
	if err != nil {
		return models.Applicant{}, err
	}
	name = strings.TrimSpace(name)
	for _, a := range records {
		if a.StudentName == name {
			return a, nil
		}
	}
	return models.Applicant{}, apperrors.NewRecordNotFoundError(strings.Join(t.tables, ","), name)
}

// Add appends a new applicant with the creation defaults.
func (t *Tracker) Add(ctx context.Context, table, first, last, school string) (store.AppendResult, error) {
	table, err := t.resolveTable(table)
	if err != nil {
		return store.AppendResult{}, err
	}
	rec := models.NewApplicant(first, last, school, t.Now())
	return t.store.AppendRecord(ctx, table, rec)
}

// Update saves rec onto the row currently named name. A changed first or
// last name renames that row. Without an explicit table the record is saved
// to the table it was loaded from: rec.Table, else the table holding name.
func (t *Tracker) Update(ctx context.Context, table, name string, rec models.Applicant) (models.Applicant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Applicant{}, apperrors.NewInvalidInputError("student name is required")
	}

	if strings.TrimSpace(table) == "" {
		table = rec.Table
	}
	if strings.TrimSpace(table) == "" {
		current, err := t.Get(ctx, name)
		switch {
		case err == nil:
			table = current.Table
		case !apperrors.IsCode(err, apperrors.ErrCodeRecordNotFound):
			return models.Applicant{}, err
		}
	}

	table, err := t.resolveTable(table)
	if err != nil {
		return models.Applicant{}, err
	}
	rec.StudentName = name
	return t.store.SaveRecord(ctx, table, rec)
}

// ReplaceTable writes recs over the whole table.
func (t *Tracker) ReplaceTable(ctx context.Context, table string, recs []models.Applicant) error {
	table, err := t.resolveTable(table)
	if err != nil {
		return err
	}
	return t.store.SaveBulk(ctx, table, recs)
}

func (t *Tracker) FilterOptions(ctx context.Context) (query.FilterOptions, error) {
	records, err := t.Load(ctx)
	if err != nil {
		return query.FilterOptions{}, err
	}
	return query.Options(records), nil
}

// Alerts evaluates every rule over the loaded collection. Duplicate-name
// detection runs on the raw rows, before the merge drops duplicates.
func (t *Tracker) Alerts(ctx context.Context) (rules.Report, error) {
	raw, err := t.store.LoadRaw(ctx, t.tables)
	if err != nil {
		return rules.Report{}, err
	}
	records, _ := store.DedupKeepLast(raw)

	now := t.Now()
	report := t.engine.Evaluate(ctx, records, now)
	if dup, err := t.engine.Run(rules.DuplicateNames, raw, now); err == nil {
		for i := range report.Results {
			if report.Results[i].RuleID == rules.DuplicateNames {
				report.Results[i] = dup
			}
		}
	}
	return report, nil
}

// Alert returns a single rule's result.
func (t *Tracker) Alert(ctx context.Context, ruleID string) (rules.Result, error) {
	report, err := t.Alerts(ctx)
	if err != nil {
		return rules.Result{}, err
	}
	if res, ok := report.Result(ruleID); ok {
		return res, nil
	}
	return rules.Result{}, apperrors.NewRuleNotFoundError(ruleID)
}

// AgentSuggestions proposes an agent for each unassigned applicant.
func (t *Tracker) AgentSuggestions(ctx context.Context) ([]query.Suggestion, error) {
	records, err := t.Load(ctx)
	if err != nil {
		return nil, err
	}
	return query.AssignDefaultAgent(records, t.agents), nil
}

// Documents resolves the checklist for an existing applicant.
func (t *Tracker) Documents(ctx context.Context, name string) (documents.Checklist, error) {
	if t.docs == nil {
		return documents.Checklist{}, apperrors.NewInvalidInputError("document storage is not configured")
	}
	a, err := t.Get(ctx, name)
	if err != nil {
		return documents.Checklist{}, err
	}
	return t.docs.Checklist(ctx, a.StudentName), nil
}

// SendDigest evaluates the rules and mails the result to each agent.
func (t *Tracker) SendDigest(ctx context.Context) (*notify.Result, error) {
	if t.notifier == nil {
		return nil, apperrors.NewInvalidInputError("notifications are not configured")
	}
	report, err := t.Alerts(ctx)
	if err != nil {
		return nil, err
	}
	return t.notifier.Send(ctx, report)
}

func (t *Tracker) resolveTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		table = t.defaultTable
	}
	for _, known := range t.tables {
		if known == table {
			return table, nil
		}
	}
	return "", apperrors.NewTableNotFoundError(table)
}

// Ready checks that the store answers.
func (t *Tracker) Ready(ctx context.Context) error {
	_, err := t.store.Tables(ctx)
	return err
}
