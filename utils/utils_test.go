package utils

import (
	"testing"
	"time"

	"fortio.org/assert"
)

func TestToString(t *testing.T) {
	assert.Equal(t, "35000", ToString(int64(35000), ""))
	assert.Equal(t, "16.02", ToString(16.02, ""))
	assert.Equal(t, "19790429_9552", ToString("19790429_9552", ""))
	assert.Equal(t, "default", ToString(nil, "default"))
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(76104), ToInt64("76104", 0))
	assert.Equal(t, int64(76104), ToInt64(76104.0, 0))
	assert.Equal(t, int64(-1), ToInt64("not a number", -1))
	assert.Equal(t, int64(0), ToInt64(nil, 0))
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 16.02, ToFloat64("16.02", 0))
	assert.Equal(t, 59000.0, ToFloat64(int64(59000), 0))
	assert.Equal(t, -1.0, ToFloat64(struct{}{}, -1.0))
}

func TestToTime(t *testing.T) {
	ts := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, ToTime(ts.Unix(), time.Time{}))
	assert.Equal(t, ts, ToTime("2023-03-15T00:00:00Z", time.Time{}))
	assert.Equal(t, ts, ToTime(ts, time.Time{}))
	assert.True(t, ToTime("garbage", time.Time{}).IsZero())
}

func TestMd5(t *testing.T) {
	assert.Equal(t, Md5("abc"), Md5("abc"))
	assert.NotEqual(t, Md5("abc"), Md5("abd"))
	assert.Equal(t, 32, len(Md5("credit_scoring_credit_history_online")))
}
