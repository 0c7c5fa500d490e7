package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	dexcontext "github.com/grafana/dexdebug/pkg/context"
	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
	"github.com/grafana/dexdebug/pkg/translate"
)

const testFixture = "testdata/methods.yaml"

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	cfg.translate = translate.Config{MaxConcurrency: 2, SkipMalformedDebugInfo: true, DecodeCacheSize: 8}
	var buf bytes.Buffer
	ctx := dexcontext.WithRegistry(context.Background(), prometheus.NewRegistry())
	return withOutput(ctx, &buf), &buf
}

func TestLoadFixture(t *testing.T) {
	f, err := loadFixture(testFixture)
	require.NoError(t, err)
	require.Len(t, f.Methods, 4)
	table := f.stringTable()

	add, err := f.Methods[0].Method(table)
	require.NoError(t, err)
	require.Equal(t, debugtable.PositionMap{Targets: []uint32{0, 1, 2, 3, 4, 5, 6, 7}, CodeLength: 8}, add.Positions)
	info, err := debuginfo.ParseInfo(add.DebugInfo, table)
	require.NoError(t, err)
	require.Equal(t, uint32(10), info.LineStart)
	require.Len(t, info.Events, 4)

	list, err := f.Methods[1].Method(table)
	require.NoError(t, err)
	require.Equal(t, uint32(0x200), list.DebugInfoOffset)
	require.Equal(t, "0700040202020400", hex.EncodeToString(list.DebugInfo))
	require.Equal(t, []uint16{1}, list.Registers.Slots(2))

	none, err := f.Methods[3].Method(table)
	require.NoError(t, err)
	require.Nil(t, none.DebugInfo)
}

func TestParseFixtureErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		want string
	}{
		{name: "missing name", yaml: "methods: [{line_start: 1}]", want: "name is required"},
		{name: "two sources", yaml: "methods: [{name: a, debug_info: '00', debug_info_item: '0000'}]", want: "only one of"},
		{name: "short code", yaml: "methods: [{name: a, positions: [0, 1, 2], code_length: 2}]", want: "shorter than positions"},
		{name: "not yaml", yaml: "methods: {", want: "failed to parse fixture"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFixture([]byte(tc.yaml))
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestEventFixture(t *testing.T) {
	name, typ := "n", "I"
	for _, tc := range []struct {
		in      EventFixture
		want    debuginfo.Event
		wantErr bool
	}{
		{in: EventFixture{Op: "advance_pc", Delta: 4}, want: debuginfo.AdvancePC{Delta: 4}},
		{in: EventFixture{Op: "ADVANCE_LINE", Delta: -3}, want: debuginfo.AdvanceLine{Delta: -3}},
		{in: EventFixture{Op: "start_local", Register: 3, Name: &name}, want: debuginfo.StartLocal{Register: 3, Name: debuginfo.Some("n")}},
		{in: EventFixture{Op: "start_local_extended", Register: 1, Name: &name, Type: &typ}, want: debuginfo.StartLocalExtended{Register: 1, Name: debuginfo.Some("n"), Type: debuginfo.Some("I")}},
		{in: EventFixture{Op: "restart_local", Register: 2}, want: debuginfo.RestartLocal{Register: 2}},
		{in: EventFixture{Op: "set_file"}, want: debuginfo.SetFile{}},
		{in: EventFixture{Op: "set_prologue_end"}, want: debuginfo.SetPrologueEnd{}},
		{in: EventFixture{Op: "set_epilogue_begin"}, want: debuginfo.SetEpilogueBegin{}},
		{in: EventFixture{Op: "special", Addr: 0, Line: -4}, want: debuginfo.Special{Op: debuginfo.FirstSpecial}},
		{in: EventFixture{Op: "special", Addr: 0, Line: 11}, wantErr: true},
		{in: EventFixture{Op: "advance_pc", Delta: -1}, wantErr: true},
		{in: EventFixture{Op: "jump"}, wantErr: true},
	} {
		t.Run(tc.in.Op, func(t *testing.T) {
			got, err := tc.in.Event()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCommand(t *testing.T) {
	ctx, buf := testContext(t)
	err := decode(ctx, testFixture)
	// Foo.broken is not decodable.
	require.ErrorContains(t, err, "method Foo.broken")
	require.Contains(t, buf.String(), "DBG_START_LOCAL v1 x I")
	require.Contains(t, buf.String(), "DBG_SPECIAL(0x3c) addr+3 line+1")
	require.Contains(t, buf.String(), "DBG_START_LOCAL_EXTENDED v2 this Ljava/util/List; Ljava/util/List<Ljava/lang/String;>;")
}

func TestTranslateCommand(t *testing.T) {
	t.Run("hex", func(t *testing.T) {
		ctx, buf := testContext(t)
		require.NoError(t, translateFixture(ctx, testFixture, "hex", false))
		lines := bytes.Split(bytes.TrimSuffix(buf.Bytes(), []byte("\n")), []byte("\n"))
		require.Len(t, lines, 4)
		require.True(t, bytes.HasPrefix(lines[0], []byte("Foo.add\t2\t")))
		require.True(t, bytes.HasPrefix(lines[1], []byte("Foo.list\t2\t")))
		require.Equal(t, "Foo.broken\t0\t", string(lines[2]))
		require.Equal(t, "Foo.none\t0\t", string(lines[3]))
	})

	t.Run("console with stats", func(t *testing.T) {
		ctx, buf := testContext(t)
		require.NoError(t, translateFixture(ctx, testFixture, "console", true))
		out := buf.String()
		require.Contains(t, out, "LineNumberTable")
		require.Contains(t, out, "LocalVariableTypeTable")
		require.Contains(t, out, "Ljava/util/List<Ljava/lang/String;>;")
		require.Contains(t, out, "dexdebug_methods_translated_total")
	})

	t.Run("raw", func(t *testing.T) {
		ctx, _ := testContext(t)
		path := filepath.Join(t.TempDir(), "attributes.bin")
		require.NoError(t, translateFixture(ctx, testFixture, "raw="+path, false))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		// Foo.add: LineNumberTable 12 + LocalVariableTable 18.
		// Foo.list: LocalVariableTable 18 + LocalVariableTypeTable 18.
		require.Len(t, data, 30+36)
	})

	t.Run("unknown output", func(t *testing.T) {
		ctx, _ := testContext(t)
		require.ErrorContains(t, translateFixture(ctx, testFixture, "pprof", false), "unknown output")
	})
}

func TestEncodeCommand(t *testing.T) {
	ctx, buf := testContext(t)
	require.NoError(t, encode(ctx, testFixture))
	// start_local v1 x I, special 0x3c, end_local v1, end_sequence.
	require.Equal(t, "Foo.add\t030101013c050100\n", buf.String())
}
