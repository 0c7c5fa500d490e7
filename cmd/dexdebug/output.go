package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/classfile"
	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
	"github.com/grafana/dexdebug/pkg/translate"
)

func printMethodHeader(out io.Writer, name, detail string) {
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint(name), color.HiBlackString(detail))
}

func printInfo(out io.Writer, name string, info *debuginfo.Info) {
	printMethodHeader(out, name, fmt.Sprintf("line_start=%d parameters=%d", info.LineStart, len(info.ParameterNames)))
	for i, p := range info.ParameterNames {
		fmt.Fprintf(out, "\t param %d: %s\n", i, p)
	}
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Event"})
	for i, e := range info.Events {
		table.Append([]string{strconv.Itoa(i), debuginfo.Format(e)})
	}
	table.Render()
}

func printResult(out io.Writer, r *translate.Result) {
	switch {
	case r.Err != nil:
		printMethodHeader(out, r.Method, color.RedString("dropped: %v", r.Err))
		return
	case r.AttributeCount == 0:
		printMethodHeader(out, r.Method, "no debug attributes")
		return
	}
	printMethodHeader(out, r.Method, fmt.Sprintf("%d attributes, %s, %d diagnostics",
		r.AttributeCount, humanize.Bytes(uint64(len(r.Attributes))), r.Diagnostics))

	if rows := r.Tables.LineNumbers; rows != nil {
		fmt.Fprintln(out, "\t", classfile.AttrLineNumberTable)
		table := tablewriter.NewWriter(out)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"start_pc", "line_number"})
		for _, row := range rows {
			table.Append([]string{fmt.Sprint(row.StartPC), fmt.Sprint(row.Line)})
		}
		table.Render()
	}
	printVariables(out, classfile.AttrLocalVariableTable, "descriptor", r.Tables.LocalVariables)
	printVariables(out, classfile.AttrLocalVariableTypeTable, "signature", r.Tables.LocalVariableTypes)
}

func printVariables(out io.Writer, attr, descriptor string, rows []debugtable.VariableEntry) {
	if rows == nil {
		return
	}
	fmt.Fprintln(out, "\t", attr)
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"start_pc", "length", "name", descriptor, "index"})
	for _, row := range rows {
		table.Append([]string{
			fmt.Sprint(row.StartPC),
			fmt.Sprint(row.Length),
			row.Name,
			row.Descriptor,
			fmt.Sprint(row.Slot),
		})
	}
	table.Render()
}

func printStats(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Metric", "Labels", "Value"})
	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for i, lp := range m.GetLabel() {
				if i > 0 {
					labels += ","
				}
				labels += lp.GetName() + "=" + lp.GetValue()
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
			case m.GetHistogram() != nil:
				value = fmt.Sprintf("count=%d sum=%gs", m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			default:
				continue
			}
			rows = append(rows, []string{mf.GetName(), labels, value})
		}
	}
	table.AppendBulk(rows)
	table.Render()
	return nil
}
