package featurestore

// Logger is the minimal logging surface the client needs. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}
