package debugtable

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/samber/lo"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	default:
		return "warning"
	}
}

type DiagnosticKind string

const (
	// KindUnboundRegister: a local was started in a register that has no
	// JVM slot, usually because the optimizer eliminated it.
	KindUnboundRegister DiagnosticKind = "unbound_register"
	// KindSetFileDropped: DBG_SET_FILE has no JVM equivalent.
	KindSetFileDropped DiagnosticKind = "set_file_dropped"
	// KindAddressFallback: an address referenced a removed instruction.
	KindAddressFallback DiagnosticKind = "address_fallback"
	// KindLineOutOfRange: the line register left the unsigned range.
	KindLineOutOfRange DiagnosticKind = "line_out_of_range"
)

// Diagnostic is an advisory message about debug information that could not
// be carried over. Diagnostics never change the validity of the output.
type Diagnostic struct {
	Severity Severity
	Kind     DiagnosticKind
	Method   string
	// Address is the dex address the builder was at.
	Address uint32
	Message string
}

type DiagnosticSink interface {
	Report(Diagnostic)
}

type DiagnosticSinkFunc func(Diagnostic)

func (f DiagnosticSinkFunc) Report(d Diagnostic) { f(d) }

type nopSink struct{}

func (nopSink) Report(Diagnostic) {}

func NopSink() DiagnosticSink { return nopSink{} }

type logSink struct {
	logger log.Logger
}

// NewLogSink returns a sink writing diagnostics to logger at the level
// matching their severity.
func NewLogSink(logger log.Logger) DiagnosticSink {
	return &logSink{logger: logger}
}

func (s *logSink) Report(d Diagnostic) {
	var l log.Logger
	switch d.Severity {
	case SeverityDebug:
		l = level.Debug(s.logger)
	case SeverityInfo:
		l = level.Info(s.logger)
	default:
		l = level.Warn(s.logger)
	}
	_ = l.Log("msg", d.Message, "kind", d.Kind, "method", d.Method, "address", d.Address)
}

// Collector is a sink that keeps every diagnostic it receives.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) { c.Diagnostics = append(c.Diagnostics, d) }

// Kinds returns the kinds of the collected diagnostics in report order.
func (c *Collector) Kinds() []DiagnosticKind {
	return lo.Map(c.Diagnostics, func(d Diagnostic, _ int) DiagnosticKind { return d.Kind })
}
