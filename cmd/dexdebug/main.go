package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"

	dexcontext "github.com/grafana/dexdebug/pkg/context"
	"github.com/grafana/dexdebug/pkg/translate"
)

var cfg struct {
	verbose   bool
	translate translate.Config
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]), "Tooling for translating dex debug info into JVM class file debug attributes.").UsageWriter(os.Stdout)
	app.Version(version.Print("dexdebug"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("0").BoolVar(&cfg.verbose)

	decodeCmd := app.Command("decode", "Print the decoded debug events of every method in a fixture.")
	decodeFile := decodeCmd.Arg("file", "fixture file path").Required().ExistingFile()

	translateCmd := app.Command("translate", "Translate the debug info of every method in a fixture.")
	translateFile := translateCmd.Arg("file", "fixture file path").Required().ExistingFile()
	translateOutput := translateCmd.Flag("output", "How to output the result, examples: console, hex, raw=./attributes.bin").Default("console").String()
	translateStats := translateCmd.Flag("stats", "Print translation metrics after the run.").Default("false").Bool()
	addTranslateConfigFlags(translateCmd, &cfg.translate)

	encodeCmd := app.Command("encode", "Encode the symbolic events of every method in a fixture.")
	encodeFile := encodeCmd.Arg("file", "fixture file path").Required().ExistingFile()

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	ctx := dexcontext.WithLogger(context.Background(), logger)
	ctx = dexcontext.WithRegistry(ctx, prometheus.NewRegistry())
	ctx = withOutput(ctx, os.Stdout)

	switch parsedCmd {
	case decodeCmd.FullCommand():
		os.Exit(checkError(decode(dexcontext.WithSource(ctx, *decodeFile), *decodeFile)))
	case translateCmd.FullCommand():
		os.Exit(checkError(translateFixture(dexcontext.WithSource(ctx, *translateFile), *translateFile, *translateOutput, *translateStats)))
	case encodeCmd.FullCommand():
		os.Exit(checkError(encode(ctx, *encodeFile)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}
}

func addTranslateConfigFlags(cmd *kingpin.CmdClause, c *translate.Config) {
	cmd.Flag("max-concurrency", "Maximum number of methods whose debug info is built concurrently.").Default("8").IntVar(&c.MaxConcurrency)
	cmd.Flag("skip-malformed-debug-info", "Drop the debug info of a method with a malformed debug_info_item instead of failing the whole run.").Default("true").BoolVar(&c.SkipMalformedDebugInfo)
	cmd.Flag("decode-cache-size", "Number of decoded debug_info_items kept for methods sharing the same item. 0 disables the cache.").Default("1024").IntVar(&c.DecodeCacheSize)
}

func checkError(err error) int {
	switch err {
	case nil:
		return 0
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}

type contextKey uint8

const (
	contextKeyOutput contextKey = iota
)

func withOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, contextKeyOutput, w)
}

func output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(contextKeyOutput).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
