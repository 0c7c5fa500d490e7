package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	dexcontext "github.com/grafana/dexdebug/pkg/context"
	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/classfile"
	"github.com/grafana/dexdebug/pkg/translate"
	"github.com/grafana/dexdebug/pkg/util"
)

func decode(ctx context.Context, path string) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	table := f.stringTable()
	out := output(ctx)
	for _, m := range f.Methods {
		item, err := m.Item(table)
		if err != nil {
			return errors.Wrapf(err, "method %s", m.Name)
		}
		if item == nil {
			printMethodHeader(out, m.Name, "no debug info")
			continue
		}
		info, err := debuginfo.ParseInfo(item, table)
		if err != nil {
			return errors.Wrapf(err, "method %s", m.Name)
		}
		printInfo(out, m.Name, info)
	}
	return nil
}

func translateFixture(ctx context.Context, path, outputFlag string, stats bool) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	table := f.stringTable()
	methods := make([]translate.Method, 0, len(f.Methods))
	for _, m := range f.Methods {
		method, err := m.Method(table)
		if err != nil {
			return err
		}
		methods = append(methods, method)
	}

	logger := util.LoggerWithSource(dexcontext.Source(ctx), dexcontext.Logger(ctx))
	t, err := translate.New(logger, cfg.translate, dexcontext.Registry(ctx))
	if err != nil {
		return err
	}
	pool := classfile.NewPool()
	report, err := t.TranslateAll(ctx, methods, table, pool)
	if err != nil {
		return err
	}
	if report.Skipped != nil {
		level.Warn(logger).Log("msg", "debug info dropped", "methods", len(report.Skipped.Errors), "err", report.Skipped.ErrorOrNil())
	}

	switch {
	case outputFlag == "console":
		for _, r := range report.Results {
			printResult(output(ctx), r)
		}
	case outputFlag == "hex":
		for _, r := range report.Results {
			fmt.Fprintf(output(ctx), "%s\t%d\t%s\n", r.Method, r.AttributeCount, hex.EncodeToString(r.Attributes))
		}
	case strings.HasPrefix(outputFlag, "raw="):
		if err := writeRaw(strings.TrimPrefix(outputFlag, "raw="), report); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown output %q", outputFlag)
	}

	if stats {
		if g, ok := dexcontext.Registry(ctx).(prometheus.Gatherer); ok {
			return printStats(output(ctx), g)
		}
	}
	return nil
}

func writeRaw(path string, report *translate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, r := range report.Results {
		if _, err := f.Write(r.Attributes); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "attributes written", "path", path)
	return nil
}

func encode(ctx context.Context, path string) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	table := f.stringTable()
	for _, m := range f.Methods {
		if len(m.Events) == 0 {
			continue
		}
		events, err := m.DebugEvents()
		if err != nil {
			return err
		}
		data, err := debuginfo.EncodeEvents(events, table)
		if err != nil {
			return errors.Wrapf(err, "method %s", m.Name)
		}
		fmt.Fprintf(output(ctx), "%s\t%s\n", m.Name, hex.EncodeToString(data))
	}
	return nil
}
