package config

import "fmt"

// ConfigurationError reports a missing or malformed runtime descriptor. It is
// always fatal for the target being built.
type ConfigurationError struct {
	Source  string // descriptor file path
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = fmt.Sprintf("%s at '%s'", msg, e.Source)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
