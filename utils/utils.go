package utils

import (
	"crypto/md5"
	"fmt"
	"strconv"
	"time"
)

func ToString(value interface{}, def string) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return def
	default:
		return fmt.Sprintf("%v", v)
	}
}

func ToInt64(value interface{}, def int64) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(f)
		}
		return def
	case []byte:
		return ToInt64(string(v), def)
	default:
		return def
	}
}

func ToInt(value interface{}, def int) int {
	return int(ToInt64(value, int64(def)))
}

func ToFloat64(value interface{}, def float64) float64 {
	switch v := value.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return def
	case []byte:
		return ToFloat64(string(v), def)
	default:
		return def
	}
}

func ToBool(value interface{}, def bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return def
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return def
	}
}

// ToTime interprets unix seconds, RFC3339 strings and time.Time values.
func ToTime(value interface{}, def time.Time) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case int64:
		return time.Unix(v, 0).UTC()
	case int:
		return time.Unix(int64(v), 0).UTC()
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(i, 0).UTC()
		}
		return def
	default:
		return def
	}
}

func Md5(input string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(input)))
}
