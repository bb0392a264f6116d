package constants

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type FSType int

const (
	FS_INT32 FSType = iota + 1 // int32
	FS_INT64                   // int64
	FS_FLOAT
	FS_DOUBLE
	FS_STRING
	FS_BOOLEAN
	FS_TIMESTAMP
)

var fsTypeNames = map[FSType]string{
	FS_INT32:     "INT32",
	FS_INT64:     "INT64",
	FS_FLOAT:     "FLOAT",
	FS_DOUBLE:    "DOUBLE",
	FS_STRING:    "STRING",
	FS_BOOLEAN:   "BOOLEAN",
	FS_TIMESTAMP: "TIMESTAMP",
}

func (t FSType) String() string {
	if name, ok := fsTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FSType(%d)", int(t))
}

func ParseFSType(name string) (FSType, error) {
	for fsType, n := range fsTypeNames {
		if n == name {
			return fsType, nil
		}
	}
	return 0, fmt.Errorf("unknown value type:%s", name)
}

func (t FSType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML accepts the type name or the numeric enum value.
func (t *FSType) UnmarshalYAML(node *yaml.Node) error {
	var raw int
	if err := node.Decode(&raw); err == nil {
		*t = FSType(raw)
		return nil
	}

	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseFSType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

const (
	Datasource_Type_Redis    = "redis"
	Datasource_Type_MySQL    = "mysql"
	Datasource_Type_SQLite   = "sqlite"
	Datasource_Type_Postgres = "postgres"
	Datasource_Type_Memory   = "memory"
)

const (
	Registry_Type_Postgres = "postgres"
	Registry_Type_Memory   = "memory"
)

// EventTimestampField is the reserved column name carrying the request
// timestamp in historical entity frames and the source event time in
// materialized online rows.
const EventTimestampField = "event_timestamp"

// CreatedTimestampField is the optional column recording when a source row
// was written, used to break ties between rows with equal event time.
const CreatedTimestampField = "created_timestamp"
