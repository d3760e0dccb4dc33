// Package checker validates exchange responses and book stream batches.
// A violated expectation is returned as a *Failure; misuse of a check
// (bad path syntax, missing step rule) is returned as a plain error.
package checker

import (
	"errors"
	"fmt"
	"strings"

	"apiconform/logger"
)

var log = logger.GetLogger().WithComponent("response_checker")

// Failure describes one violated expectation.
type Failure struct {
	Check   string
	Path    string
	Message string
	Details []string
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Check)
	if f.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(f.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(f.Message)
	for _, d := range f.Details {
		sb.WriteString("\n  ")
		sb.WriteString(d)
	}
	return sb.String()
}

// IsFailure reports whether err is, or wraps, a *Failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

func fail(check, path, format string, args ...any) error {
	f := &Failure{Check: check, Path: path, Message: fmt.Sprintf(format, args...)}
	log.WithFields(logger.Fields{"check": check, "path": path}).Debug(f.Message)
	return f
}

func pass(check, path string) error {
	log.WithFields(logger.Fields{"check": check, "path": path}).Debug("passed")
	return nil
}
