package core

// Logger is any service that can log application events.
// expected args: error, map[string]interface{}, SessionTag
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// SessionTag identifies the credential scope, and the role logged in there, an event happened in.
type SessionTag struct {
	Scope string
	Role  string
}
