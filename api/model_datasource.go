package api

// DataSource points at a historical table in the offline store. The pipeline
// never writes through it.
type DataSource struct {
	Name            string            `json:"name" yaml:"name"`
	Table           string            `json:"table" yaml:"table"`
	EventTimeField  string            `json:"event_time_field" yaml:"event_time_field"`
	CreateTimeField string            `json:"create_time_field,omitempty" yaml:"create_time_field,omitempty"`
	Tags            map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
