package balancer

import (
	"errors"
	"fmt"
)

// ConfigError — некорректная конфигурация классов для параллели.
// Ошибка одной параллели не прерывает обработку остальных.
type ConfigError struct {
	Grade  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Grade != "" {
		return fmt.Sprintf("grade %s: invalid class configuration: %s", e.Grade, e.Reason)
	}
	return "invalid class configuration: " + e.Reason
}

func configErrorf(grade, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Grade: grade, Reason: fmt.Sprintf(format, args...)}
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// DataError — в ведомости нет ни одного ученика с валидными баллами.
type DataError struct {
	Grade  string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("grade %s: %s", e.Grade, e.Reason)
}

func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
