package translate

import (
	"context"
	"flag"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/grafana/dexdebug/pkg/dex"
	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/classfile"
	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testStrings() *dex.StringTable {
	return dex.NewStringTable([]string{"x", "y"}, []string{"I", "J"})
}

func defaultConfig() Config {
	return Config{MaxConcurrency: 4, SkipMalformedDebugInfo: true, DecodeCacheSize: 16}
}

// item encodes a method that keeps name in v1 for the first three code
// units and moves to line 11 at address 3.
func item(t *testing.T, name string) []byte {
	t.Helper()
	special, ok := debuginfo.NewSpecial(3, 1)
	require.True(t, ok)
	enc := debuginfo.NewEncoder(testStrings())
	require.NoError(t, enc.EncodeInfo(&debuginfo.Info{
		LineStart: 10,
		Events: []debuginfo.Event{
			debuginfo.StartLocal{Register: 1, Name: debuginfo.Some(name), Type: debuginfo.Some("I")},
			special,
			debuginfo.EndLocal{Register: 1},
			debuginfo.EndSequence{},
		},
	}))
	return enc.Bytes()
}

func method(t *testing.T, name string, offset uint32, local string) Method {
	m := Method{
		Name:            name,
		DebugInfoOffset: offset,
		DebugInfo:       item(t, local),
		Positions:       debugtable.PositionMap{Targets: []uint32{0, 1, 2, 3, 4, 5, 6, 7}, CodeLength: 8},
		Registers:       debugtable.NewRegisterMap(map[debugtable.RegisterKey]uint16{{Register: 1}: 0}),
	}
	return m
}

func newTestTranslator(t *testing.T, cfg Config) (*Translator, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	tr, err := New(log.NewNopLogger(), cfg, reg)
	require.NoError(t, err)
	return tr, reg
}

func TestTranslateMethod(t *testing.T) {
	tr, _ := newTestTranslator(t, defaultConfig())
	pool := classfile.NewPool()

	r, err := tr.TranslateMethod(context.Background(), method(t, "Foo.bar", 0x100, "x"), testStrings(), pool)
	require.NoError(t, err)
	require.NoError(t, r.Err)
	require.Equal(t, "Foo.bar", r.Method)
	require.Equal(t, 2, r.AttributeCount)
	require.Equal(t, []debugtable.LineNumberEntry{{StartPC: 3, Line: 11}}, r.Tables.LineNumbers)
	require.Equal(t, []debugtable.VariableEntry{{StartPC: 0, Length: 3, Name: "x", Descriptor: "I", Slot: 0}}, r.Tables.LocalVariables)
	require.Nil(t, r.Tables.LocalVariableTypes)
	// LineNumberTable: 6 + 2 + 4; LocalVariableTable: 6 + 2 + 10.
	require.Len(t, r.Attributes, 12+18)

	require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.methodsTranslated.WithLabelValues(statusSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.attributesEmitted.WithLabelValues(classfile.AttrLineNumberTable)))
	require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.attributesEmitted.WithLabelValues(classfile.AttrLocalVariableTable)))
	require.Equal(t, 0.0, testutil.ToFloat64(tr.metrics.attributesEmitted.WithLabelValues(classfile.AttrLocalVariableTypeTable)))
}

func TestTranslateMethodWithoutDebugInfo(t *testing.T) {
	tr, _ := newTestTranslator(t, defaultConfig())

	r, err := tr.TranslateMethod(context.Background(), Method{Name: "Foo.empty"}, testStrings(), classfile.NewPool())
	require.NoError(t, err)
	require.Zero(t, r.AttributeCount)
	require.Nil(t, r.Attributes)
	require.True(t, r.Tables.Empty())
	require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.methodsTranslated.WithLabelValues(statusNoDebugInfo)))
}

func TestTranslateMethodMalformed(t *testing.T) {
	// line_start=10, no parameters, DBG_ADVANCE_PC without its operand.
	malformed := Method{Name: "Foo.broken", DebugInfo: []byte{0x0a, 0x00, 0x01}}

	t.Run("skipped", func(t *testing.T) {
		tr, _ := newTestTranslator(t, defaultConfig())
		r, err := tr.TranslateMethod(context.Background(), malformed, testStrings(), classfile.NewPool())
		require.NoError(t, err)
		require.ErrorIs(t, r.Err, debuginfo.ErrTruncated)
		require.ErrorContains(t, r.Err, "method Foo.broken")
		require.Zero(t, r.AttributeCount)
		require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.methodsTranslated.WithLabelValues(statusSkipped)))
	})

	t.Run("fatal", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.SkipMalformedDebugInfo = false
		tr, _ := newTestTranslator(t, cfg)
		_, err := tr.TranslateMethod(context.Background(), malformed, testStrings(), classfile.NewPool())
		require.ErrorIs(t, err, debuginfo.ErrTruncated)
		require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.methodsTranslated.WithLabelValues(statusFailed)))
	})
}

func TestTranslateMethodCanceled(t *testing.T) {
	tr, _ := newTestTranslator(t, defaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.TranslateMethod(ctx, method(t, "Foo.bar", 0, "x"), testStrings(), classfile.NewPool())
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeCache(t *testing.T) {
	for _, tc := range []struct {
		name     string
		cacheSz  int
		offset   uint32
		wantHits float64
	}{
		{name: "shared item", cacheSz: 16, offset: 0x40, wantHits: 2},
		{name: "zero offset", cacheSz: 16, offset: 0, wantHits: 0},
		{name: "cache disabled", cacheSz: 0, offset: 0x40, wantHits: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.DecodeCacheSize = tc.cacheSz
			tr, _ := newTestTranslator(t, cfg)
			for i := 0; i < 3; i++ {
				_, _, err := tr.Build(method(t, "Foo.bar", tc.offset, "x"), testStrings())
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantHits, testutil.ToFloat64(tr.metrics.decodeCacheHits))
		})
	}
}

func TestBuildCountsDiagnostics(t *testing.T) {
	tr, _ := newTestTranslator(t, defaultConfig())
	m := method(t, "Foo.bar", 0, "x")
	m.Registers = nil

	tables, diags, err := tr.Build(m, testStrings())
	require.NoError(t, err)
	require.Nil(t, tables.LocalVariables)
	require.Equal(t, 1, diags)
	require.Equal(t, 1.0, testutil.ToFloat64(tr.metrics.diagnostics.WithLabelValues(string(debugtable.KindUnboundRegister))))
}

func TestTranslateAll(t *testing.T) {
	tr, _ := newTestTranslator(t, defaultConfig())
	pool := classfile.NewPool()
	methods := []Method{
		method(t, "A.a", 0, "x"),
		{Name: "A.broken", DebugInfo: []byte{0x0a, 0x00, 0x01}},
		method(t, "A.b", 0, "y"),
		{Name: "A.none"},
	}

	report, err := tr.TranslateAll(context.Background(), methods, testStrings(), pool)
	require.NoError(t, err)
	require.Len(t, report.Results, len(methods))
	for i, r := range report.Results {
		require.Equal(t, methods[i].Name, r.Method)
	}
	require.Equal(t, 2, report.Results[0].AttributeCount)
	require.Error(t, report.Results[1].Err)
	require.Equal(t, 2, report.Results[2].AttributeCount)
	require.Zero(t, report.Results[3].AttributeCount)
	require.NotNil(t, report.Skipped)
	require.Len(t, report.Skipped.Errors, 1)

	// Pool entries follow method order regardless of scheduling.
	for idx, want := range []string{classfile.AttrLineNumberTable, classfile.AttrLocalVariableTable, "x", "I", "y"} {
		got, ok := pool.Lookup(uint16(idx + 1))
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestTranslateAllFailsFast(t *testing.T) {
	cfg := defaultConfig()
	cfg.SkipMalformedDebugInfo = false
	tr, _ := newTestTranslator(t, cfg)

	_, err := tr.TranslateAll(context.Background(), []Method{
		method(t, "A.a", 0, "x"),
		{Name: "A.broken", DebugInfo: []byte{0x0a, 0x00, 0x01}},
	}, testStrings(), classfile.NewPool())
	require.ErrorContains(t, err, "method A.broken")
}

func TestConfigRegisterFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.PanicOnError)
	cfg.RegisterFlags(fs)
	require.Equal(t, Config{MaxConcurrency: 8, SkipMalformedDebugInfo: true, DecodeCacheSize: 1024}, cfg)

	require.NoError(t, fs.Parse([]string{"-translate.max-concurrency=2", "-translate.decode-cache-size=0"}))
	require.Equal(t, 2, cfg.MaxConcurrency)
	require.Zero(t, cfg.DecodeCacheSize)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: defaultConfig()},
		{name: "no concurrency", cfg: Config{MaxConcurrency: 0}, wantErr: true},
		{name: "negative cache", cfg: Config{MaxConcurrency: 1, DecodeCacheSize: -1}, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewRegistersMetrics(t *testing.T) {
	_, reg := newTestTranslator(t, defaultConfig())
	tr2, err := New(log.NewNopLogger(), defaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, tr2.metrics)

	// Unlabelled collectors are gathered before any observation.
	n, err := testutil.GatherAndCount(reg, "dexdebug_decode_cache_hits_total", "dexdebug_method_translation_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
