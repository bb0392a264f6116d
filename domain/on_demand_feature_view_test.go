package domain

import (
	"testing"

	"fortio.org/assert"
	"github.com/featstore/featstore/api"
	"github.com/featstore/featstore/constants"
)

func newDebtView(t *testing.T) *OnDemandFeatureView {
	t.Helper()
	view, err := NewOnDemandFeatureView(&api.OnDemandFeatureView{
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
	return view
}

func TestOnDemandEvaluate(t *testing.T) {
	view := newDebtView(t)

	outputs, err := view.Evaluate(map[string]interface{}{
		"credit_card_due":  int64(8000),
		"mortgage_due":     int64(91000),
		"student_loan_due": int64(22000),
		"income":           float64(605000),
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, int64(121000), outputs["total_debt"])
	assert.Equal(t, float64(121000)/float64(605000), outputs["debt_to_income"])
}

func TestOnDemandEvaluateIsDeterministic(t *testing.T) {
	view := newDebtView(t)
	row := map[string]interface{}{
		"credit_card_due":  int64(100),
		"mortgage_due":     int64(200),
		"student_loan_due": int64(300),
		"income":           float64(1000),
	}

	first, err := view.Evaluate(row)
	if err != nil {
		t.Fatal(err)
	}
	second, err := view.Evaluate(row)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, first, second)
}

func TestOnDemandMissingInputDegradesToNil(t *testing.T) {
	view := newDebtView(t)

	outputs, err := view.Evaluate(map[string]interface{}{
		"credit_card_due": int64(8000),
		"mortgage_due":    nil,
		"income":          float64(605000),
	})
	if err != nil {
		t.Fatal(err)
	}
	// total_debt is nil, so debt_to_income degrades too
	assert.Equal(t, nil, outputs["total_debt"])
	assert.Equal(t, nil, outputs["debt_to_income"])
}

func TestOnDemandClip(t *testing.T) {
	view := newDebtView(t)

	outputs, err := view.Evaluate(map[string]interface{}{
		"credit_card_due":  int64(1000000),
		"mortgage_due":     int64(0),
		"student_loan_due": int64(0),
		"income":           float64(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, float64(10), outputs["debt_to_income"])
}

func TestOnDemandInputVariables(t *testing.T) {
	view := newDebtView(t)

	vars := view.InputVariables()
	// clip and float are functions, total_debt is produced by the view itself
	// but still counts as a referenced variable for the second program
	expected := map[string]bool{
		"credit_card_due":  true,
		"mortgage_due":     true,
		"student_loan_due": true,
		"income":           true,
		"total_debt":       true,
	}
	assert.Equal(t, len(expected), len(vars))
	for _, v := range vars {
		assert.True(t, expected[v])
	}
}

func TestOnDemandBadExpressionRejected(t *testing.T) {
	_, err := NewOnDemandFeatureView(&api.OnDemandFeatureView{
		Name: "broken",
		Outputs: []*api.OnDemandOutput{
			{Name: "x", Type: constants.FS_DOUBLE, Expression: "a +* b"},
		},
	})
	assert.True(t, err != nil)
}
