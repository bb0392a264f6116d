package dao

import (
	"testing"

	"fortio.org/assert"
)

func TestExtractVariables(t *testing.T) {
	vars, err := ExtractVariables("credit_card_due + mortgage_due + student_loan_due + vehicle_loan_due + loan_amnt")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []string{"credit_card_due", "loan_amnt", "mortgage_due", "student_loan_due", "vehicle_loan_due"}, vars)
}

func TestExtractVariablesConditional(t *testing.T) {
	vars, err := ExtractVariables(`time_of_day >= 9 && time_of_day <= 17 ? 1.0 : 1.1`)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []string{"time_of_day"}, vars)
}

func TestExtractVariablesSkipsCalleeNames(t *testing.T) {
	vars, err := ExtractVariables("clip(loan_amnt / person_income, 0, 10)")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []string{"loan_amnt", "person_income"}, vars)
}

func TestExtractVariablesParseError(t *testing.T) {
	_, err := ExtractVariables("a +* b")
	assert.Error(t, err)
}
