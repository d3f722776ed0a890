package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/mdi-inspection/mdi/config"
	"github.com/mdi-inspection/mdi/octree"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// infof prints a cyan "Info: " prefixed message.
func infof(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.FgCyan).Fprint(w, "Info: ")
	printf(w, format, a...)
}

// warningf prints a bold yellow "Warning: " prefixed message.
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// Errorf prints a bold red "Error: " prefixed message to the app's error writer and returns an
// error that makes the command exit with status 1.
func Errorf(w io.Writer, format string, a ...interface{}) error {
	//nolint:errcheck
	color.New(color.Bold, color.FgRed).Fprint(w, "Error: ")
	printf(w, format, a...)
	return cli.Exit("", 1)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// waypointTable renders points as a numbered table.
func waypointTable(points []config.Point) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "X", "Y", "Z"})
	for i, p := range points {
		t.AppendRow(table.Row{i, formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z)})
	}
	return t.Render()
}

// responseSummary renders the scalar fields of a response.
func responseSummary(resp *config.PlanResponse) string {
	t := table.NewWriter()
	t.AppendRow(table.Row{"id", resp.ID})
	t.AppendRow(table.Row{"mode", resp.Mode})
	t.AppendRow(table.Row{"success", resp.Success})
	t.AppendRow(table.Row{"iterations", resp.Iterations})
	t.AppendRow(table.Row{"waypoints", len(resp.Waypoints)})
	if resp.Smoothed != nil {
		t.AppendRow(table.Row{"smoothed", len(resp.Smoothed)})
	}
	if resp.FoundNBVWithSufficientGain != nil {
		t.AppendRow(table.Row{"sufficient gain", *resp.FoundNBVWithSufficientGain})
	}
	if resp.BestGain != nil {
		t.AppendRow(table.Row{"best gain", formatCoord(*resp.BestGain)})
	}
	if resp.MapUnavailable {
		t.AppendRow(table.Row{"map", "unavailable"})
	}
	if resp.Error != "" {
		t.AppendRow(table.Row{"error", resp.Error})
	}
	return t.Render()
}

// mapTable renders the occupancy counts and extent of a map.
func mapTable(tree octree.Octree) string {
	counts := map[octree.Occupancy]int{}
	tree.Iterate(func(v octree.Voxel) bool {
		counts[v.Occupancy]++
		return true
	})

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Occupancy", "Voxels"})
	for _, o := range []octree.Occupancy{octree.Free, octree.Occupied, octree.Unknown} {
		t.AppendRow(table.Row{o.String(), counts[o]})
	}
	t.AppendFooter(table.Row{"observed", tree.Size()})
	return t.Render()
}
