// Package translate runs the debug info translation for the methods of a
// dex file: decode the debug_info_item, replay it against the instruction
// translator's position and register maps, and serialize the JVM debug
// attributes.
package translate

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/classfile"
	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
	"github.com/grafana/dexdebug/pkg/util"
)

// Method is the input for the debug info of one method.
type Method struct {
	Name string
	// DebugInfoOffset is the offset of the debug_info_item in its dex file.
	// Methods sharing an item are decoded once. Zero disables caching.
	DebugInfoOffset uint32
	// DebugInfo is the complete debug_info_item; nil if the method has
	// none.
	DebugInfo []byte
	Positions debugtable.PositionMap
	Registers *debugtable.RegisterMap
}

// Result is the translated debug info of one method.
type Result struct {
	Method         string
	Tables         debugtable.Tables
	AttributeCount int
	Attributes     []byte
	Diagnostics    int
	// Err is set when the debug info was malformed and dropped.
	Err error
}

// Report is the outcome of a batch translation.
type Report struct {
	Results []*Result
	// Skipped aggregates the errors of methods whose debug info was dropped.
	Skipped *multierror.Error
}

// Translator is safe for concurrent use. Decode cache entries are keyed by
// item offset, so a Translator must only be used with methods of a single
// dex file.
type Translator struct {
	logger  log.Logger
	cfg     Config
	metrics *metrics
	cache   *lru.Cache[uint32, *debuginfo.Info]
}

func New(logger log.Logger, cfg Config, reg prometheus.Registerer) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Translator{
		logger:  logger,
		cfg:     cfg,
		metrics: newMetrics(reg),
	}
	if cfg.DecodeCacheSize > 0 {
		cache, err := lru.New[uint32, *debuginfo.Info](cfg.DecodeCacheSize)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	return t, nil
}

// Build decodes and replays the debug info of m. Errors are fatal for the
// method and carry its name.
func (t *Translator) Build(m Method, strings debuginfo.StringResolver) (debugtable.Tables, int, error) {
	if m.DebugInfo == nil {
		return debugtable.Tables{}, 0, nil
	}
	start := time.Now()
	defer func() {
		t.metrics.translationDuration.Observe(time.Since(start).Seconds())
	}()

	info, err := t.decode(m, strings)
	if err != nil {
		return debugtable.Tables{}, 0, errors.Wrapf(err, "method %s", m.Name)
	}
	sink := &diagnosticSink{
		DiagnosticSink: debugtable.NewLogSink(util.LoggerWithMethod(m.Name, t.logger)),
		metrics:        t.metrics,
	}
	tables := debugtable.Build(m.Name, info.LineStart, info.Events, m.Positions, m.Registers, sink)
	return tables, sink.count, nil
}

func (t *Translator) decode(m Method, strings debuginfo.StringResolver) (*debuginfo.Info, error) {
	if t.cache == nil || m.DebugInfoOffset == 0 {
		return debuginfo.ParseInfo(m.DebugInfo, strings)
	}
	if info, ok := t.cache.Get(m.DebugInfoOffset); ok {
		t.metrics.decodeCacheHits.Inc()
		return info, nil
	}
	info, err := debuginfo.ParseInfo(m.DebugInfo, strings)
	if err != nil {
		return nil, err
	}
	t.cache.Add(m.DebugInfoOffset, info)
	return info, nil
}

// TranslateMethod builds the debug tables of m and serializes them with
// pool. A malformed debug_info_item either fails the call or, with
// SkipMalformedDebugInfo, yields a result without attributes.
func (t *Translator) TranslateMethod(ctx context.Context, m Method, strings debuginfo.StringResolver, pool classfile.ConstantPool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tables, diags, err := t.Build(m, strings)
	return t.finish(m, tables, diags, err, pool)
}

// TranslateAll translates methods concurrently. Tables are built in
// parallel; serialization happens in input order so constant pool indices
// do not depend on scheduling.
func (t *Translator) TranslateAll(ctx context.Context, methods []Method, strings debuginfo.StringResolver, pool classfile.ConstantPool) (*Report, error) {
	type built struct {
		tables debugtable.Tables
		diags  int
		err    error
	}
	results := make([]built, len(methods))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.MaxConcurrency)
	for i := range methods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tables, diags, err := t.Build(methods[i], strings)
			if err != nil && !t.cfg.SkipMalformedDebugInfo {
				t.metrics.methodsTranslated.WithLabelValues(statusFailed).Inc()
				return err
			}
			results[i] = built{tables: tables, diags: diags, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: make([]*Result, 0, len(methods))}
	for i, m := range methods {
		r, err := t.finish(m, results[i].tables, results[i].diags, results[i].err, pool)
		if err != nil {
			return nil, err
		}
		if r.Err != nil {
			report.Skipped = multierror.Append(report.Skipped, r.Err)
		}
		report.Results = append(report.Results, r)
	}
	return report, nil
}

func (t *Translator) finish(m Method, tables debugtable.Tables, diags int, buildErr error, pool classfile.ConstantPool) (*Result, error) {
	r := &Result{Method: m.Name, Diagnostics: diags}
	if buildErr != nil {
		if !t.cfg.SkipMalformedDebugInfo {
			t.metrics.methodsTranslated.WithLabelValues(statusFailed).Inc()
			return nil, buildErr
		}
		level.Warn(t.logger).Log("msg", "dropping malformed debug info", "method", m.Name, "err", buildErr)
		t.metrics.methodsTranslated.WithLabelValues(statusSkipped).Inc()
		r.Err = buildErr
		return r, nil
	}

	count, data, err := classfile.WriteDebugAttributes(pool, tables)
	if err != nil {
		t.metrics.methodsTranslated.WithLabelValues(statusFailed).Inc()
		return nil, errors.Wrapf(err, "method %s: writing debug attributes", m.Name)
	}
	r.Tables, r.AttributeCount, r.Attributes = tables, count, data

	status := statusSuccess
	if m.DebugInfo == nil {
		status = statusNoDebugInfo
	}
	t.metrics.methodsTranslated.WithLabelValues(status).Inc()
	for name, present := range map[string]bool{
		classfile.AttrLineNumberTable:        tables.LineNumbers != nil,
		classfile.AttrLocalVariableTable:     tables.LocalVariables != nil,
		classfile.AttrLocalVariableTypeTable: tables.LocalVariableTypes != nil,
	} {
		if present {
			t.metrics.attributesEmitted.WithLabelValues(name).Inc()
		}
	}
	return r, nil
}

// diagnosticSink counts diagnostics before forwarding them.
type diagnosticSink struct {
	debugtable.DiagnosticSink
	metrics *metrics
	count   int
}

func (s *diagnosticSink) Report(d debugtable.Diagnostic) {
	s.count++
	s.metrics.diagnostics.WithLabelValues(string(d.Kind)).Inc()
	s.DiagnosticSink.Report(d)
}
