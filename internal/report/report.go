// Package report renders pool statistics for the command line programs
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jzx17/threadpool/pkg/threadpool"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/olekukonko/tablewriter"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Cyan   = color.New(color.FgCyan)
)

// Section prints a bold heading followed by optional description lines
func Section(w io.Writer, title string, lines ...string) {
	fmt.Fprintln(w)
	_, _ = Bold.Fprintln(w, title)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// Check prints a green or red status line
func Check(w io.Writer, ok bool, format string, a ...any) {
	if ok {
		_, _ = Green.Fprintf(w, "  ✓ "+format+"\n", a...)
		return
	}
	_, _ = Red.Fprintf(w, "  ✗ "+format+"\n", a...)
}

// PoolStats renders a pool snapshot as a two column table
func PoolStats(w io.Writer, stats types.PoolStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Name", stats.Name},
		{"Mode", stats.Mode.String()},
		{"State", stats.State.String()},
		{"Workers (initial/current/max)", fmt.Sprintf("%d / %d / %d",
			stats.InitialWorkers, stats.CurrentWorkers, stats.MaxWorkers)},
		{"Idle / busy workers", fmt.Sprintf("%d / %d", stats.IdleWorkers, stats.BusyWorkers())},
		{"Queue", fmt.Sprintf("%d / %d", stats.QueueLength, stats.QueueCapacity)},
		{"Submitted", strconv.FormatInt(stats.TotalSubmitted, 10)},
		{"Completed", strconv.FormatInt(stats.TotalCompleted, 10)},
		{"Failed", strconv.FormatInt(stats.TotalFailed, 10)},
		{"Rejected", strconv.FormatInt(stats.TotalRejected, 10)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

// WorkerStats renders one row per registered worker
func WorkerStats(w io.Writer, workers []threadpool.WorkerStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Worker", "State", "Processed", "Failed", "Last active")

	for _, ws := range workers {
		err := table.Append(
			strconv.FormatUint(ws.ID, 10),
			ws.State.String(),
			strconv.FormatInt(ws.TotalProcessed, 10),
			strconv.FormatInt(ws.TotalFailed, 10),
			ws.LastActive.Format("15:04:05.000"),
		)
		if err != nil {
			return err
		}
	}
	return table.Render()
}
