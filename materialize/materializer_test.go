package materialize

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fortio.org/assert"
	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/dao"
	"github.com/featstore/featstore/datasource/sqlitedb"
	"github.com/featstore/featstore/domain"
	"github.com/featstore/featstore/fserrors"
	"github.com/featstore/featstore/registry"
)

func newMaterializeFixture(t *testing.T) (*Materializer, *domain.Project, registry.Registry) {
	t.Helper()
	dao.ResetMemoryStores()
	t.Cleanup(dao.ResetMemoryStores)

	cfg := api.NewConfiguration("credit_scoring", filepath.Join(t.TempDir(), "offline.db"))
	p, err := domain.NewProject(cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlitedb.RemoveSQLite(p.OfflineStore.GetDatasourceName()) })

	entity := &api.FeatureEntity{
		FeatureEntityName:   "zipcode",
		FeatureEntityJoinid: "zipcode",
		ValueType:           constants.FS_INT64,
	}
	p.FeatureEntityMap[entity.FeatureEntityName] = domain.NewFeatureEntity(entity)

	source := &api.DataSource{
		Name:            "zipcode_source",
		Table:           "zipcode_features",
		EventTimeField:  "event_timestamp",
		CreateTimeField: "created_timestamp",
	}
	p.DataSourceMap[source.Name] = source

	view := &api.FeatureView{
		Name:              "zipcode_features",
		FeatureEntityName: "zipcode",
		DataSourceName:    source.Name,
		Online:            true,
		Fields: []*api.FeatureViewFields{
			{Name: "zipcode", Type: constants.FS_INT64, IsPrimaryKey: true},
			{Name: "population", Type: constants.FS_INT64},
			{Name: "city", Type: constants.FS_STRING},
		},
	}
	p.FeatureViewMap[view.Name] = domain.NewFeatureView(view, p, p.GetFeatureEntity("zipcode"), source)

	reg := registry.NewMemoryRegistry()
	return NewMaterializer(reg, p, nil), p, reg
}

func seedSourceRows(t *testing.T, view domain.FeatureView, rows []map[string]interface{}) {
	t.Helper()
	ctx := context.Background()
	if err := view.EnsureSourceTable(ctx); err != nil {
		t.Fatal(err)
	}
	if err := view.InsertSourceRows(ctx, rows); err != nil {
		t.Fatal(err)
	}
}

func TestMaterializeWritesLatestPerKey(t *testing.T) {
	m, p, reg := newMaterializeFixture(t)
	ctx := context.Background()
	view := p.GetFeatureView("zipcode_features")

	seedSourceRows(t, view, []map[string]interface{}{
		{"zipcode": int64(76104), "event_timestamp": int64(1000), "created_timestamp": int64(1000), "population": int64(10000), "city": "Fort Worth"},
		{"zipcode": int64(76104), "event_timestamp": int64(2000), "created_timestamp": int64(2000), "population": int64(10534), "city": "Fort Worth"},
		{"zipcode": int64(60629), "event_timestamp": int64(1500), "created_timestamp": int64(1500), "population": int64(113916), "city": "Chicago"},
	})

	from := time.Unix(0, 0)
	to := time.Unix(3000, 0)
	result, err := m.Materialize(ctx, "zipcode_features", &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 3, result.RowsScanned)
	assert.Equal(t, 2, result.KeysWritten)
	assert.True(t, result.JobId != "")

	rows, err := view.GetOnlineFeatures(ctx, []interface{}{int64(76104), int64(60629)}, []string{"*"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(rows))
	for _, row := range rows {
		switch row["zipcode"] {
		case int64(76104):
			// only the newer of the two source rows survives
			assert.Equal(t, int64(10534), row["population"])
		case int64(60629):
			assert.Equal(t, int64(113916), row["population"])
		}
	}

	watermark, ok, err := reg.GetWatermark("zipcode_features")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3000), watermark)
}

func TestMaterializeIncrementalResumesAtWatermark(t *testing.T) {
	m, p, reg := newMaterializeFixture(t)
	ctx := context.Background()
	view := p.GetFeatureView("zipcode_features")

	now := time.Now().Unix()
	seedSourceRows(t, view, []map[string]interface{}{
		{"zipcode": int64(76104), "event_timestamp": now - 500, "created_timestamp": now - 500, "population": int64(10000), "city": "Fort Worth"},
		{"zipcode": int64(76104), "event_timestamp": now - 10, "created_timestamp": now - 10, "population": int64(10534), "city": "Fort Worth"},
	})

	if err := reg.SetWatermark("zipcode_features", now-100); err != nil {
		t.Fatal(err)
	}

	result, err := m.MaterializeIncremental(ctx, "zipcode_features")
	if err != nil {
		t.Fatal(err)
	}
	// the row behind the watermark is not rescanned
	assert.Equal(t, 1, result.RowsScanned)
	assert.Equal(t, 1, result.KeysWritten)

	watermark, ok, err := reg.GetWatermark("zipcode_features")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, watermark >= now-1)
}

func TestMaterializeStaleWatermark(t *testing.T) {
	m, _, reg := newMaterializeFixture(t)
	ctx := context.Background()

	if err := reg.SetWatermark("zipcode_features", 5000); err != nil {
		t.Fatal(err)
	}

	from := time.Unix(0, 0)
	to := time.Unix(3000, 0)
	_, err := m.Materialize(ctx, "zipcode_features", &from, &to)
	assert.True(t, errors.Is(err, fserrors.ErrStaleWatermark))
}

func TestMaterializeReplayIsIdempotent(t *testing.T) {
	m, p, _ := newMaterializeFixture(t)
	ctx := context.Background()
	view := p.GetFeatureView("zipcode_features")

	seedSourceRows(t, view, []map[string]interface{}{
		{"zipcode": int64(76104), "event_timestamp": int64(2000), "created_timestamp": int64(2000), "population": int64(10534), "city": "Fort Worth"},
	})

	from := time.Unix(0, 0)
	to := time.Unix(3000, 0)
	if _, err := m.Materialize(ctx, "zipcode_features", &from, &to); err != nil {
		t.Fatal(err)
	}

	// write a newer value online directly, then replay the old window
	err := view.WriteOnlineFeatures(ctx, []map[string]interface{}{
		{"zipcode": int64(76104), "event_timestamp": int64(2500), "population": int64(99999), "city": "Fort Worth"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Materialize(ctx, "zipcode_features", &from, &to); err != nil {
		t.Fatal(err)
	}

	rows, err := view.GetOnlineFeatures(ctx, []interface{}{int64(76104)}, []string{"population"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(99999), rows[0]["population"])
}

func TestMaterializeRejectsRowsFailingValidation(t *testing.T) {
	m, p, _ := newMaterializeFixture(t)
	ctx := context.Background()

	min := float64(0)
	entity := &api.FeatureEntity{
		FeatureEntityName:   "dob_ssn",
		FeatureEntityJoinid: "dob_ssn",
		ValueType:           constants.FS_STRING,
	}
	p.FeatureEntityMap[entity.FeatureEntityName] = domain.NewFeatureEntity(entity)
	source := &api.DataSource{
		Name:           "credit_source",
		Table:          "credit_history",
		EventTimeField: "event_timestamp",
	}
	p.DataSourceMap[source.Name] = source
	view := &api.FeatureView{
		Name:              "credit_history",
		FeatureEntityName: "dob_ssn",
		DataSourceName:    source.Name,
		Online:            true,
		Fields: []*api.FeatureViewFields{
			{Name: "dob_ssn", Type: constants.FS_STRING, IsPrimaryKey: true},
			{Name: "credit_card_due", Type: constants.FS_INT64, Validations: []*api.ValidationRule{{Min: &min}}},
		},
	}
	p.FeatureViewMap[view.Name] = domain.NewFeatureView(view, p, p.GetFeatureEntity("dob_ssn"), source)

	fv := p.GetFeatureView("credit_history")
	seedSourceRows(t, fv, []map[string]interface{}{
		{"dob_ssn": "ok", "event_timestamp": int64(1000), "credit_card_due": int64(8000)},
		{"dob_ssn": "bad", "event_timestamp": int64(1000), "credit_card_due": int64(-5)},
	})

	from := time.Unix(0, 0)
	to := time.Unix(2000, 0)
	result, err := m.Materialize(ctx, "credit_history", &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, result.RowsScanned)
	assert.Equal(t, 1, result.RowsInvalid)
	assert.Equal(t, 1, result.KeysWritten)

	rows, err := fv.GetOnlineFeatures(ctx, []interface{}{"ok", "bad"}, []string{"credit_card_due"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "ok", rows[0]["dob_ssn"])
}

func TestMaterializeUnknownView(t *testing.T) {
	m, _, _ := newMaterializeFixture(t)

	_, err := m.MaterializeIncremental(context.Background(), "no_such_view")
	assert.True(t, errors.Is(err, fserrors.ErrNotFound))
}

func TestMaterializeSerializesPerView(t *testing.T) {
	m, p, _ := newMaterializeFixture(t)
	ctx := context.Background()
	view := p.GetFeatureView("zipcode_features")

	seedSourceRows(t, view, []map[string]interface{}{
		{"zipcode": int64(76104), "event_timestamp": int64(1000), "created_timestamp": int64(1000), "population": int64(10000), "city": "Fort Worth"},
	})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := time.Unix(0, 0)
			to := time.Unix(int64(2000+i), 0)
			_, errs[i] = m.Materialize(ctx, "zipcode_features", &from, &to)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !errors.Is(err, fserrors.ErrStaleWatermark) {
			t.Fatal(err)
		}
	}
}
