// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each time the progress bar is updated, and it should return a name and the current value when it is called.
type ExtraMetricFn func() (name, value string)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBar displays the progress of a fixed number of repeated runs, along with a table of statistics
// (number of runs, median run duration and any extra metrics).
//
// Updates to the terminal are done asynchronously, so reporting a step never blocks on the terminal.
type ProgressBar struct {
	numRuns   int
	bar       *progressbar.ProgressBar
	plain     bool
	out       io.Writer
	durations []time.Duration

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

type progressBarUpdate struct {
	amount  int
	metrics []string
}

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

// NewProgressBar creates a progress bar for numRuns runs, writing to os.Stdout.
//
// If plain is true no colors, cursor movements or statistics table are used: only the bar itself is printed.
//
// Optionally, one can provide extraMetrics: functions that are called at every update of
// the progress bar and should return a name (title) and a value to be included in the
// updated print-out.
func NewProgressBar(numRuns int, plain bool, extraMetrics ...ExtraMetricFn) *ProgressBar {
	return newProgressBar(os.Stdout, numRuns, plain, extraMetrics...)
}

func newProgressBar(out io.Writer, numRuns int, plain bool, extraMetrics ...ExtraMetricFn) *ProgressBar {
	pBar := &ProgressBar{
		numRuns:        numRuns,
		plain:          plain,
		out:            out,
		extraMetricFns: extraMetrics,
	}
	pBar.bar = progressbar.NewOptions(numRuns,
		progressbar.OptionSetDescription("      "),
		progressbar.OptionUseANSICodes(!plain),
		progressbar.OptionEnableColorCodes(!plain),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("runs"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(out),
	)
	if plain {
		return pBar
	}

	pBar.isFirstOutput = true
	pBar.termenv = termenv.NewOutput(out)
	pBar.statsStyle = lipgloss.NewStyle().PaddingLeft(8)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
	pBar.updates = make(chan progressBarUpdate, 100) // Large buffer so things are not blocked.
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
	return pBar
}

// drawUpdates asynchronously draws the updates: runs can be faster than the terminal.
func (pBar *ProgressBar) drawUpdates() {
	defer pBar.asyncUpdatesDone.Done()
	for update := range pBar.updates {
		// Exhaust the updates in the buffer:
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		// Create the table to be printed.
		pBar.statsTable.Data(lgtable.NewStringData())
		pBar.statsTable.Row("Runs", update.metrics[0])
		pBar.statsTable.Row("Median run duration", update.metrics[1])
		for _, extraMetric := range pBar.extraMetricFns {
			name, value := extraMetric()
			pBar.statsTable.Row(name, value)
		}

		// For command-line, we clear the previous lines that will be overwritten.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			numLinesToBackup := len(update.metrics) + 2 + 2 + len(pBar.extraMetricFns)
			pBar.termenv.CursorPrevLine(numLinesToBackup)
		}
		pBar.isFirstOutput = false

		// Print update.
		_, _ = fmt.Fprintln(pBar.out, pBar.statsStyle.Render(pBar.statsTable.String()))
		_ = pBar.bar.Add(amount) // Prints progress bar line.
		_, _ = fmt.Fprintln(pBar.out)
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
}

// Step reports one more run finished, and how long it took.
func (pBar *ProgressBar) Step(elapsed time.Duration) {
	pBar.durations = append(pBar.durations, elapsed)
	if pBar.plain {
		_ = pBar.bar.Add(1)
		return
	}
	pBar.updates <- progressBarUpdate{
		amount: 1,
		metrics: []string{
			fmt.Sprintf("%s of %s", humanize.Comma(int64(len(pBar.durations))), humanize.Comma(int64(pBar.numRuns))),
			FormatDuration(pBar.MedianDuration()),
		},
	}
}

// MedianDuration of the runs reported so far.
func (pBar *ProgressBar) MedianDuration() time.Duration {
	return medianDuration(pBar.durations)
}

// Done waits for the pending updates to be printed, and restores the terminal.
func (pBar *ProgressBar) Done() {
	if pBar.updates != nil {
		close(pBar.updates)
		pBar.asyncUpdatesDone.Wait()
		pBar.updates = nil
	}
	if pBar.termenv != nil {
		pBar.termenv.ShowCursor()
	}
	_, _ = fmt.Fprintln(pBar.out)
}

func medianDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}
