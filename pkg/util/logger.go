package util

import (
	"github.com/go-kit/log"
)

// Logger is a nop global logger
var Logger = log.NewNopLogger()

// LoggerWithMethod returns a Logger that has information about the method
// being translated in its details.
func LoggerWithMethod(method string, l log.Logger) log.Logger {
	return log.With(l, "method", method)
}

// LoggerWithSource returns a Logger that has information about the dex file
// the methods come from.
//
// e.g.
//
//	logger = util.LoggerWithSource("classes2.dex", logger)
//	# level=warn source=classes2.dex method=Foo.bar msg="..."
func LoggerWithSource(source string, l log.Logger) log.Logger {
	if source == "" {
		return l
	}
	return log.With(l, "source", source)
}
