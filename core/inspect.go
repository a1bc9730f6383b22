package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/encodeous/dvsim/state"
)

// RenderNode formats the routing table of a single node, one destination per line
func RenderNode(v state.NodeView) string {
	sb := strings.Builder{}
	flag := ""
	if v.Anomaly {
		flag = " [anomaly]"
	}
	sb.WriteString(fmt.Sprintf("%s (%s)%s\n", v.Id, v.Kind, flag))
	for _, dst := range slices.Sorted(maps.Keys(v.Table)) {
		sb.WriteString(fmt.Sprintf("   %s: %s\n", dst, state.FormatMetric(v.Table[dst])))
	}
	return sb.String()
}

// RenderTables formats every table on one line per node, as "node: dst->cost ..."
func RenderTables(snap state.Snapshot) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Round %d:\n", snap.Round))
	for _, v := range snap.Nodes {
		line := make([]string, 0, len(v.Table))
		for _, dst := range slices.Sorted(maps.Keys(v.Table)) {
			line = append(line, fmt.Sprintf("%s->%s", dst, state.FormatMetric(v.Table[dst])))
		}
		flag := ""
		if v.Anomaly {
			flag = "!"
		}
		sb.WriteString(fmt.Sprintf(" - %s%s: %s\n", v.Id, flag, strings.Join(line, " ")))
	}
	return sb.String()
}

func RenderLinks(snap state.Snapshot) string {
	sb := strings.Builder{}
	sb.WriteString("Links:\n")
	rt := make([]string, 0)
	if len(snap.Links) == 0 {
		rt = append(rt, " (none)")
	}
	for _, l := range snap.Links {
		p := state.MakeSortedPair(l.A, l.B)
		rt = append(rt, fmt.Sprintf(" - (%s, %s) cost: %s base: %d", p.V1, p.V2, state.FormatMetric(l.Cost), l.BaseCost))
	}
	slices.Sort(rt)
	sb.WriteString(strings.Join(rt, "\n") + "\n")
	return sb.String()
}

func RenderAnomaly(report AnomalyReport) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Anomaly injected at %s", report.Node))
	if report.Repeat {
		sb.WriteString(" (repeat)")
	}
	sb.WriteString("\n")
	for _, l := range report.Links {
		sb.WriteString(fmt.Sprintf(" - (%s, %s) cost: %s -> %s\n", l.A, l.B, state.FormatMetric(l.Old), state.FormatMetric(l.New)))
	}
	return sb.String()
}
