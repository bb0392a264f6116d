package dao

import (
	"context"
	"testing"

	"fortio.org/assert"
	"github.com/featstore/featstore/constants"
)

func newMemoryDaoForTest(t *testing.T) *FeatureViewMemoryDao {
	t.Helper()
	ResetMemoryStores()
	t.Cleanup(ResetMemoryStores)

	return NewFeatureViewMemoryDao(DaoConfig{
		DatasourceType:  constants.Datasource_Type_Memory,
		Project:         "credit_scoring",
		FeatureViewName: "credit_history",
		PrimaryKeyField: "dob_ssn",
		EventTimeField:  "event_timestamp",
		FieldTypeMap: map[string]constants.FSType{
			"dob_ssn":         constants.FS_STRING,
			"credit_card_due": constants.FS_INT64,
			"mortgage_due":    constants.FS_INT64,
		},
	})
}

func TestMemoryDaoWriteAndGet(t *testing.T) {
	d := newMemoryDaoForTest(t)
	ctx := context.Background()

	err := d.WriteFeatures(ctx, []map[string]interface{}{
		{"dob_ssn": "19790429_9552", "event_timestamp": int64(1000), "credit_card_due": int64(8000), "mortgage_due": int64(91000)},
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := d.GetFeatures(ctx, []interface{}{"19790429_9552", "19971025_8002"}, []string{"credit_card_due", "mortgage_due"})
	if err != nil {
		t.Fatal(err)
	}

	// the never-written key is absent, not an error
	assert.Equal(t, 1, len(rows))
	assert.Equal(t, "19790429_9552", rows[0]["dob_ssn"])
	assert.Equal(t, int64(8000), rows[0]["credit_card_due"])
	assert.Equal(t, int64(1000), rows[0]["event_timestamp"])
}

func TestMemoryDaoKeepsLatestEvent(t *testing.T) {
	d := newMemoryDaoForTest(t)
	ctx := context.Background()

	err := d.WriteFeatures(ctx, []map[string]interface{}{
		{"dob_ssn": "19790429_9552", "event_timestamp": int64(2000), "credit_card_due": int64(5000)},
	})
	if err != nil {
		t.Fatal(err)
	}

	// an older write must not clobber the newer row
	err = d.WriteFeatures(ctx, []map[string]interface{}{
		{"dob_ssn": "19790429_9552", "event_timestamp": int64(1000), "credit_card_due": int64(9999)},
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := d.GetFeatures(ctx, []interface{}{"19790429_9552"}, []string{"credit_card_due"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(5000), rows[0]["credit_card_due"])
	assert.Equal(t, int64(2000), rows[0]["event_timestamp"])
}
