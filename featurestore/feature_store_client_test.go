package featurestore

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
	"github.com/featstore/featstore/fserrors"
	"github.com/featstore/featstore/registry"
)

const day = 24 * 60 * 60

func seedDefinitions(t *testing.T, reg registry.Registry) {
	t.Helper()

	err := reg.RegisterFeatureEntity(&api.FeatureEntity{
		FeatureEntityName:   "dob_ssn",
		FeatureEntityJoinid: "dob_ssn",
		ValueType:           constants.FS_STRING,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = reg.RegisterDataSource(&api.DataSource{
		Name:            "credit_history_source",
		Table:           "credit_history",
		EventTimeField:  "event_timestamp",
		CreateTimeField: "created_timestamp",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = reg.RegisterFeatureView(&api.FeatureView{
		Name:              "credit_history",
		FeatureEntityName: "dob_ssn",
		DataSourceName:    "credit_history_source",
		Online:            true,
		Ttl:               90 * day,
		Fields: []*api.FeatureViewFields{
			{Name: "dob_ssn", Type: constants.FS_STRING, IsPrimaryKey: true},
			{Name: "credit_card_due", Type: constants.FS_INT64},
			{Name: "mortgage_due", Type: constants.FS_INT64},
			{Name: "student_loan_due", Type: constants.FS_INT64},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = reg.RegisterOnDemandFeatureView(&api.OnDemandFeatureView{
		Name:    "total_debt_calc",
		Sources: []string{"credit_history"},
		RequestFields: []*api.FeatureViewFields{
			{Name: "income", Type: constants.FS_DOUBLE},
		},
		Outputs: []*api.OnDemandOutput{
			{Name: "total_debt", Type: constants.FS_INT64, Expression: "credit_card_due + mortgage_due + student_loan_due"},
			{Name: "debt_to_income", Type: constants.FS_DOUBLE, Expression: "clip(float(total_debt) / income, 0.0, 10.0)"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = reg.RegisterFeatureService(&api.FeatureService{
		Name: "credit_score_v1",
		Features: []*api.ServiceFeature{
			{FeatureViewName: "credit_history", Name: "*"},
			{FeatureViewName: "total_debt_calc", Name: "total_debt"},
			{FeatureViewName: "total_debt_calc", Name: "debt_to_income"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func newTestClient(t *testing.T) *FeatureStoreClient {
	t.Helper()
	dao.ResetMemoryStores()
	t.Cleanup(dao.ResetMemoryStores)

	reg := registry.NewMemoryRegistry()
	seedDefinitions(t, reg)

	cfg := api.NewConfiguration("credit_scoring", filepath.Join(t.TempDir(), "offline.db"))
	client, err := NewFeatureStoreClient(cfg, reg, WithLoopData(false))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		client.Close()
		sqlitedb.RemoveSQLite("credit_scoring_offline")
	})
	return client
}

func seedCreditHistory(t *testing.T, client *FeatureStoreClient, now int64) {
	t.Helper()
	ctx := context.Background()
	project, err := client.GetProject("credit_scoring")
	if err != nil {
		t.Fatal(err)
	}
	view := project.GetFeatureView("credit_history")
	if err := view.EnsureSourceTable(ctx); err != nil {
		t.Fatal(err)
	}
	err = view.InsertSourceRows(ctx, []map[string]interface{}{
		// 73 days old, inside the 90 day ttl
		{"dob_ssn": "19790429_9552", "event_timestamp": now - 73*day, "created_timestamp": now - 73*day, "credit_card_due": int64(8000), "mortgage_due": int64(91000), "student_loan_due": int64(22000)},
		// 134 days old, outside the ttl
		{"dob_ssn": "19971025_8002", "event_timestamp": now - 134*day, "created_timestamp": now - 134*day, "credit_card_due": int64(1500), "mortgage_due": int64(40000), "student_loan_due": int64(0)},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClientOnlineRetrievalAfterMaterialize(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now().Unix()
	seedCreditHistory(t, client, now)

	result, err := client.MaterializeIncremental(ctx, "credit_history")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, result.RowsScanned)
	assert.Equal(t, 2, result.KeysWritten)

	response, err := client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
		ServiceName: "credit_score_v1",
		EntityRows:  map[string][]interface{}{"dob_ssn": {"19790429_9552", "19561212_2015"}},
		RequestData: map[string][]interface{}{"income": {float64(605000), float64(50000)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(response.Rows))

	assert.Equal(t, int64(8000), response.Rows[0]["credit_card_due"])
	assert.Equal(t, int64(121000), response.Rows[0]["total_debt"])
	assert.Equal(t, now-73*day, response.Staleness[0]["credit_history"])

	// entity never materialized, all features null
	assert.Equal(t, nil, response.Rows[1]["credit_card_due"])
	assert.Equal(t, nil, response.Rows[1]["total_debt"])
	assert.Equal(t, nil, response.Rows[1]["debt_to_income"])
}

func TestClientHistoricalRetrievalHonorsTtl(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now().Unix()
	seedCreditHistory(t, client, now)

	rows, err := client.GetHistoricalFeatures(ctx, "credit_score_v1", []map[string]interface{}{
		{"dob_ssn": "19790429_9552", "event_timestamp": now, "income": float64(605000)},
		{"dob_ssn": "19971025_8002", "event_timestamp": now, "income": float64(30000)},
	})
	if err != nil {
		t.Fatal(err)
	}

	// the 73 day old row joins, the 134 day old row is expired
	assert.Equal(t, int64(8000), rows[0]["credit_card_due"])
	assert.Equal(t, int64(121000), rows[0]["total_debt"])
	assert.Equal(t, nil, rows[1]["credit_card_due"])
	assert.Equal(t, nil, rows[1]["total_debt"])
}

func TestClientAdHocRefs(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now().Unix()
	seedCreditHistory(t, client, now)

	if _, err := client.MaterializeIncremental(ctx, "credit_history"); err != nil {
		t.Fatal(err)
	}

	response, err := client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
		Features:   []string{"credit_history:credit_card_due", "total_debt_calc:total_debt"},
		EntityRows: map[string][]interface{}{"dob_ssn": {"19790429_9552"}},
		RequestData: map[string][]interface{}{
			"income": {float64(605000)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(8000), response.Rows[0]["credit_card_due"])
	assert.Equal(t, int64(121000), response.Rows[0]["total_debt"])
	// only the requested columns and the join id come back
	_, hasMortgage := response.Rows[0]["mortgage_due"]
	assert.False(t, hasMortgage)

	_, err = client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
		Features:   []string{"not_a_ref"},
		EntityRows: map[string][]interface{}{"dob_ssn": {"x"}},
	})
	assert.True(t, errors.Is(err, fserrors.ErrUnknownFeature))

	rows, err := client.GetHistoricalFeaturesByRefs(ctx,
		[]string{"credit_history:mortgage_due"},
		[]map[string]interface{}{{"dob_ssn": "19790429_9552", "event_timestamp": now}},
	)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(91000), rows[0]["mortgage_due"])
}

func TestClientUnknownService(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetOnlineFeatures(context.Background(), &OnlineFeaturesRequest{
		ServiceName: "no_such_service",
		EntityRows:  map[string][]interface{}{"dob_ssn": {"x"}},
	})
	assert.True(t, errors.Is(err, fserrors.ErrNotFound))
}

func TestClientConcurrentRetrievals(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now().Unix()
	seedCreditHistory(t, client, now)

	if _, err := client.MaterializeIncremental(ctx, "credit_history"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			response, err := client.GetOnlineFeatures(ctx, &OnlineFeaturesRequest{
				ServiceName: "credit_score_v1",
				EntityRows:  map[string][]interface{}{"dob_ssn": {"19790429_9552"}},
				RequestData: map[string][]interface{}{"income": {float64(605000)}},
			})
			if err != nil {
				errs[i] = err
				return
			}
			if response.Rows[0]["total_debt"] != int64(121000) {
				errs[i] = errors.New("unexpected total_debt")
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestClientSavedDataset(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	now := time.Now().Unix()
	seedCreditHistory(t, client, now)

	request := &CreateSavedDatasetRequest{
		Name:        "training_v1",
		ServiceName: "credit_score_v1",
		EntityRows: []map[string]interface{}{
			{"dob_ssn": "19790429_9552", "event_timestamp": now, "income": float64(605000)},
			{"dob_ssn": "19971025_8002", "event_timestamp": now, "income": float64(30000)},
		},
	}
	dataset, err := client.CreateSavedDataset(ctx, request)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, dataset.RowCount)
	assert.Equal(t, []string{"dob_ssn"}, dataset.JoinKeys)
	assert.True(t, dataset.DatasetId != "")

	stored, rows, err := client.GetSavedDataset(ctx, "training_v1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, dataset.DatasetId, stored.DatasetId)
	assert.Equal(t, 2, len(rows))
	// snapshots survive nulls
	assert.Equal(t, nil, rows[1]["credit_card_due"])

	// same name again needs the overwrite flag
	_, err = client.CreateSavedDataset(ctx, request)
	assert.True(t, err != nil)

	request.AllowOverwrite = true
	overwritten, err := client.CreateSavedDataset(ctx, request)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, overwritten.DatasetId != dataset.DatasetId)
}
