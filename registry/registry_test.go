package registry

import (
	"errors"
	"testing"

	"fortio.org/assert"
	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
	"github.com/featstore/featstore/fserrors"
)

func seedRegistry(t *testing.T) *MemoryRegistry {
	t.Helper()
	r := NewMemoryRegistry()

	err := r.RegisterFeatureEntity(&api.FeatureEntity{
		FeatureEntityName:   "dob_ssn",
		FeatureEntityJoinid: "dob_ssn",
		ValueType:           constants.FS_STRING,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = r.RegisterDataSource(&api.DataSource{
		Name:           "credit_history_source",
		Table:          "credit_history",
		EventTimeField: "event_timestamp",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = r.RegisterFeatureView(&api.FeatureView{
		Name:              "credit_history",
		FeatureEntityName: "dob_ssn",
		DataSourceName:    "credit_history_source",
		Online:            true,
		Ttl:               90 * 24 * 60 * 60,
		Fields: []*api.FeatureViewFields{
			{Name: "dob_ssn", Type: constants.FS_STRING, IsPrimaryKey: true},
			{Name: "credit_card_due", Type: constants.FS_INT64},
			{Name: "mortgage_due", Type: constants.FS_INT64},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegisterIsIdempotentForIdenticalDefinition(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterFeatureEntity(&api.FeatureEntity{
		FeatureEntityName:   "dob_ssn",
		FeatureEntityJoinid: "dob_ssn",
		ValueType:           constants.FS_STRING,
	})
	assert.NoError(t, err)

	entities, err := r.ListFeatureEntities()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entities))
}

func TestRegisterConflictingDefinitionRejected(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterFeatureEntity(&api.FeatureEntity{
		FeatureEntityName:   "dob_ssn",
		FeatureEntityJoinid: "dob_ssn",
		ValueType:           constants.FS_INT64,
	})
	assert.True(t, errors.Is(err, fserrors.ErrSchemaConflict))
}

func TestRegisterFeatureViewUnknownEntity(t *testing.T) {
	r := NewMemoryRegistry()

	err := r.RegisterFeatureView(&api.FeatureView{
		Name:              "orphan",
		FeatureEntityName: "no_such_entity",
		DataSourceName:    "no_such_source",
		Fields: []*api.FeatureViewFields{
			{Name: "k", Type: constants.FS_STRING, IsPrimaryKey: true},
		},
	})
	assert.True(t, errors.Is(err, fserrors.ErrUnknownEntity))
}

func TestRegisterFeatureViewKeyTypeMismatch(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterFeatureView(&api.FeatureView{
		Name:              "mismatched",
		FeatureEntityName: "dob_ssn",
		DataSourceName:    "credit_history_source",
		Fields: []*api.FeatureViewFields{
			{Name: "dob_ssn", Type: constants.FS_INT64, IsPrimaryKey: true},
		},
	})
	assert.True(t, errors.Is(err, fserrors.ErrSchemaConflict))
}

func TestRegisterOnDemandView(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterOnDemandFeatureView(&api.OnDemandFeatureView{
		Name:    "total_debt_calc",
		Sources: []string{"credit_history"},
		Outputs: []*api.OnDemandOutput{
			{Name: "total_debt", Type: constants.FS_INT64, Expression: "credit_card_due + mortgage_due"},
		},
	})
	assert.NoError(t, err)

	view, err := r.GetOnDemandFeatureView("total_debt_calc")
	assert.NoError(t, err)
	assert.Equal(t, "total_debt_calc", view.Name)
}

func TestRegisterOnDemandViewUnresolvableVariable(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterOnDemandFeatureView(&api.OnDemandFeatureView{
		Name:    "bad_inputs",
		Sources: []string{"credit_history"},
		Outputs: []*api.OnDemandOutput{
			{Name: "x", Type: constants.FS_INT64, Expression: "credit_card_due + no_such_field"},
		},
	})
	assert.True(t, errors.Is(err, fserrors.ErrUnknownFeature))
}

func TestRegisterOnDemandViewCycleRejected(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterOnDemandFeatureView(&api.OnDemandFeatureView{
		Name:    "self_loop",
		Sources: []string{"self_loop"},
		Outputs: []*api.OnDemandOutput{
			{Name: "x", Type: constants.FS_INT64, Expression: "x + 1"},
		},
	})
	assert.True(t, errors.Is(err, fserrors.ErrCyclicDependency))
}

func TestRegisterFeatureService(t *testing.T) {
	r := seedRegistry(t)

	err := r.RegisterFeatureService(&api.FeatureService{
		Name: "credit_score_v1",
		Features: []*api.ServiceFeature{
			{FeatureViewName: "credit_history", Name: "*"},
		},
	})
	assert.NoError(t, err)

	err = r.RegisterFeatureService(&api.FeatureService{
		Name: "bad",
		Features: []*api.ServiceFeature{
			{FeatureViewName: "credit_history", Name: "no_such_field"},
		},
	})
	assert.True(t, errors.Is(err, fserrors.ErrUnknownFeature))
}

func TestGetMissingDefinition(t *testing.T) {
	r := NewMemoryRegistry()

	_, err := r.GetFeatureView("nope")
	assert.True(t, errors.Is(err, fserrors.ErrNotFound))
}

func TestWatermarks(t *testing.T) {
	r := NewMemoryRegistry()

	_, ok, err := r.GetWatermark("credit_history")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, r.SetWatermark("credit_history", 1700000000))

	watermark, ok, err := r.GetWatermark("credit_history")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), watermark)
}

func TestSavedDatasetOverwrite(t *testing.T) {
	r := NewMemoryRegistry()

	assert.NoError(t, r.RegisterSavedDataset(&api.SavedDataset{Name: "training_v1", RowCount: 10}))
	assert.NoError(t, r.RegisterSavedDataset(&api.SavedDataset{Name: "training_v1", RowCount: 20}))

	dataset, err := r.GetSavedDataset("training_v1")
	assert.NoError(t, err)
	assert.Equal(t, 20, dataset.RowCount)
}
