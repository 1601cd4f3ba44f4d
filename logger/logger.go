// Copyright (c) 2021 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package logger

// Logger is an interface to pass a generic logger through the cache engine
// without depending on either golang/glog or aristanetworks/glog directly.
// The components that log (the Manager, the audit sinks and the config
// watcher) take one of these rather than reaching for a package-level
// global; caches themselves do not log.
type Logger interface {
	// Debug logs at the debug level
	Debug(args ...interface{})
	// Debugf logs at the debug level, with format
	Debugf(format string, args ...interface{})
	// Info logs at the info level
	Info(args ...interface{})
	// Infof logs at the info level, with format
	Infof(format string, args ...interface{})
	// Warning logs at the warning level
	Warning(args ...interface{})
	// Warningf logs at the warning level, with format
	Warningf(format string, args ...interface{})
	// Error logs at the error level
	Error(args ...interface{})
	// Errorf logs at the error level, with format
	Errorf(format string, args ...interface{})
	// Fatal logs at the fatal level
	Fatal(args ...interface{})
	// Fatalf logs at the fatal level, with format
	Fatalf(format string, args ...interface{})
}

// nopLogger discards everything. Used when a component is constructed
// without an explicit Logger so call sites never need a nil check.
type nopLogger struct{}

func (nopLogger) Debug(...interface{})            {}
func (nopLogger) Debugf(string, ...interface{})   {}
func (nopLogger) Info(...interface{})             {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Warning(...interface{})          {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Error(...interface{})            {}
func (nopLogger) Errorf(string, ...interface{})   {}
func (nopLogger) Fatal(...interface{})            {}
func (nopLogger) Fatalf(string, ...interface{})   {}

// NewNop returns a Logger that discards all log lines.
func NewNop() Logger { return nopLogger{} }

// OrNop returns l, or a no-op Logger if l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
