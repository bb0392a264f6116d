// Package materialize moves historical rows into the online store. One run
// covers a half-open window (from, to] over a view's source table and ends by
// advancing the view's watermark in the registry.
package materialize

import (
	"context"
	"sync"
	"time"

	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/domain"
	"github.com/featstore/featstore/fserrors"
	"github.com/featstore/featstore/registry"
	"github.com/featstore/featstore/utils"
	"github.com/google/uuid"
)

type Logger interface {
	Printf(format string, args ...interface{})
}

// Result describes one finished materialization run.
type Result struct {
	JobId       string
	FeatureView string
	From        time.Time
	To          time.Time
	RowsScanned int
	KeysWritten int
	RowsInvalid int
}

// Materializer serializes runs per view. Two concurrent runs for the same
// view would race on the watermark, runs for different views proceed in
// parallel.
type Materializer struct {
	registry  registry.Registry
	logger    Logger
	viewLocks sync.Map // feature view name : *sync.Mutex

	mu      sync.RWMutex
	project *domain.Project
}

func NewMaterializer(reg registry.Registry, project *domain.Project, logger Logger) *Materializer {
	return &Materializer{
		registry: reg,
		project:  project,
		logger:   logger,
	}
}

// SetProject swaps in a freshly loaded project. Held view locks survive the
// swap, a run in flight finishes against the project it started with.
func (m *Materializer) SetProject(project *domain.Project) {
	m.mu.Lock()
	m.project = project
	m.mu.Unlock()
}

func (m *Materializer) getProject() *domain.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.project
}

func (m *Materializer) viewLock(name string) *sync.Mutex {
	lock, _ := m.viewLocks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Materialize runs one window for the view. A nil from resumes at the stored
// watermark, or at the beginning of time on the first run. A nil to means
// now. Re-running a finished window is safe: the online writes keep the
// newest event per key, so replays cannot move values backwards.
func (m *Materializer) Materialize(ctx context.Context, featureViewName string, from, to *time.Time) (*Result, error) {
	featureView := m.getProject().GetFeatureView(featureViewName)
	if featureView == nil {
		return nil, &fserrors.NotFoundError{Kind: "feature view", Name: featureViewName}
	}

	lock := m.viewLock(featureViewName)
	lock.Lock()
	defer lock.Unlock()

	watermark, hasWatermark, err := m.registry.GetWatermark(featureViewName)
	if err != nil {
		return nil, err
	}

	end := time.Now()
	if to != nil {
		end = *to
	}
	if hasWatermark && watermark > end.Unix() {
		return nil, &fserrors.StaleWatermarkError{
			FeatureView: featureViewName,
			Stored:      time.Unix(watermark, 0),
			Requested:   end,
		}
	}

	var start time.Time
	if from != nil {
		start = *from
	} else if hasWatermark {
		start = time.Unix(watermark, 0)
	}

	result := &Result{
		JobId:       uuid.NewString(),
		FeatureView: featureViewName,
		From:        start,
		To:          end,
	}

	rows, err := featureView.ScanSourceWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	result.RowsScanned = len(rows)

	latest := m.reduceLatest(featureView, rows)
	latest, result.RowsInvalid = m.checkRows(result.JobId, featureView, latest)
	result.KeysWritten = len(latest)

	if len(latest) > 0 {
		if err := featureView.WriteOnlineFeatures(ctx, latest); err != nil {
			return nil, err
		}
	}

	if err := m.registry.SetWatermark(featureViewName, end.Unix()); err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Printf("materialize job:%s view:%s window:(%d, %d] scanned:%d written:%d",
			result.JobId, featureViewName, start.Unix(), end.Unix(), result.RowsScanned, result.KeysWritten)
	}
	return result, nil
}

// MaterializeIncremental resumes at the stored watermark and runs up to now.
func (m *Materializer) MaterializeIncremental(ctx context.Context, featureViewName string) (*Result, error) {
	return m.Materialize(ctx, featureViewName, nil, nil)
}

// checkRows applies the view's field validation rules. Violating rows are
// held back from the online store and each violation is logged.
func (m *Materializer) checkRows(jobId string, featureView domain.FeatureView, rows []map[string]interface{}) ([]map[string]interface{}, int) {
	type boundRule struct {
		field string
		rule  *api.ValidationRule
	}
	var rules []boundRule
	for _, field := range featureView.GetFields() {
		for _, rule := range field.Validations {
			rules = append(rules, boundRule{field: field.Name, rule: rule})
		}
	}
	if len(rules) == 0 {
		return rows, 0
	}

	kept := rows[:0]
	invalid := 0
	for _, row := range rows {
		ok := true
		for _, bound := range rules {
			value, exists := row[bound.field]
			if !exists {
				continue
			}
			if err := bound.rule.Check(bound.field, value); err != nil {
				if m.logger != nil {
					m.logger.Printf("materialize job:%s view:%s rejected row: %v", jobId, featureView.GetName(), err)
				}
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, row)
		} else {
			invalid++
		}
	}
	return kept, invalid
}

// reduceLatest keeps, per key, the scanned row with the greatest event time,
// breaking ties by created time.
func (m *Materializer) reduceLatest(featureView domain.FeatureView, rows []map[string]interface{}) []map[string]interface{} {
	primaryKey := featureView.GetPrimaryKeyField()
	eventField := featureView.GetEventTimeField()
	createdField := featureView.GetCreateTimeField()

	type entry struct {
		row     map[string]interface{}
		event   int64
		created int64
	}
	byKey := make(map[string]*entry)
	var order []string

	for _, row := range rows {
		key := utils.ToString(row[primaryKey], "")
		if key == "" {
			continue
		}
		event := utils.ToInt64(row[eventField], 0)
		var created int64
		if createdField != "" {
			created = utils.ToInt64(row[createdField], 0)
		}
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = &entry{row: row, event: event, created: created}
			order = append(order, key)
			continue
		}
		if event > existing.event || (event == existing.event && created > existing.created) {
			existing.row = row
			existing.event = event
			existing.created = created
		}
	}

	result := make([]map[string]interface{}, 0, len(byKey))
	for _, key := range order {
		result = append(result, byKey[key].row)
	}
	return result
}
