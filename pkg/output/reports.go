package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stefanpenner/testpulse/pkg/report"
)

func renderSessions(w io.Writer, r *report.SessionsReport) {
	header(w, fmt.Sprintf("Test sessions: plan %s (%s to %s)", r.PlanID, formatDay(r.From), formatDay(r.To)))

	section(w, "Summary")
	fmt.Fprintf(w, "%d sessions • %d runs\n", r.Summary.Sessions, r.Summary.Runs)
	fmt.Fprintf(w, "Pass rate: median %s • mean %s • min %s • max %s\n",
		numStyle.Render(formatRate(r.Summary.MedianPassRate)),
		numStyle.Render(formatRate(r.Summary.MeanPassRate)),
		numStyle.Render(formatRate(r.Summary.MinPassRate)),
		numStyle.Render(formatRate(r.Summary.MaxPassRate)))

	if len(r.Groups) == 0 {
		fmt.Fprintln(w, "\nNo qualifying runs in range.")
		return
	}

	section(w, "Sessions")
	t := newTable([]string{"Anchor", "Runs", "Total", "Passed", "Failed", "Not Executed", "Pass Rate", "Latest Run"}, 1, 2, 3, 4, 5, 6)
	for _, g := range r.Groups {
		latest := "-"
		if n := len(g.Runs); n > 0 {
			latest = truncate(g.Runs[n-1].Name)
		}
		t.Row(
			formatDay(g.AnchorDate),
			strconv.Itoa(len(g.Runs)),
			strconv.Itoa(g.Totals.TotalTests),
			strconv.Itoa(g.Totals.PassedTests),
			strconv.Itoa(g.Totals.FailedTests),
			strconv.Itoa(g.Totals.NotExecutedTests),
			formatRate(g.Totals.PassRate()),
			latest,
		)
	}
	fmt.Fprintln(w, t)
}

func renderTrend(w io.Writer, r *report.TrendReport) {
	header(w, fmt.Sprintf("Test volume trend: plan %s", r.PlanID))

	section(w, "Daily Totals")
	if len(r.Daily) == 0 {
		fmt.Fprintln(w, "No qualifying runs in range.")
		return
	}
	daily := newTable([]string{"Day", "Total Tests"}, 1)
	for _, d := range r.Daily {
		daily.Row(formatDay(d.Date), strconv.Itoa(d.Total))
	}
	fmt.Fprintln(w, daily)

	section(w, "Changepoints")
	if len(r.Changepoints) == 0 {
		fmt.Fprintln(w, "Not enough data points.")
		return
	}
	changes := newTable([]string{"Day", "Change", "Before", "After"}, 1, 2, 3)
	for _, d := range r.Changepoints {
		changes.Row(formatDay(d.Date), formatChange(d.Change), strconv.Itoa(d.Before), strconv.Itoa(d.After))
	}
	fmt.Fprintln(w, changes)
	fmt.Fprintf(w, "%d derivatives reduced to %d changepoints\n", len(r.Derivatives), len(r.Changepoints))
}

func renderMonthly(w io.Writer, r *report.MonthlyReport) {
	header(w, fmt.Sprintf("Test plan coverage: plan %s, suite %s", r.PlanID, r.SuiteID))

	if len(r.Details) == 0 {
		fmt.Fprintln(w, "\nNo dates requested.")
		return
	}

	t := newTable([]string{"Date", "Cases", "Buffer", "Found", "Not Found", "Extraneous", "Flaky", "Initial", "Final", "First Run", "Last Run", "Days"},
		1, 2, 3, 4, 5, 6, 7, 8, 11)
	for _, d := range r.Details {
		days := "-"
		if d.Boundary.DurationDays != nil {
			days = strconv.Itoa(*d.Boundary.DurationDays)
		}
		t.Row(
			d.Date,
			strconv.Itoa(d.TestCaseCount),
			strconv.Itoa(d.BufferDays),
			strconv.Itoa(len(d.Found)),
			strconv.Itoa(len(d.NotFound)),
			strconv.Itoa(len(d.Extraneous)),
			strconv.Itoa(len(d.Flaky)),
			formatRate(d.PassRate.InitialPassRate),
			formatRate(d.PassRate.FinalPassRate),
			orDash(d.Boundary.StartDate),
			orDash(d.Boundary.EndDate),
			days,
		)
	}
	fmt.Fprintln(w, t)

	for _, d := range r.Details {
		if len(d.Flaky) == 0 {
			continue
		}
		section(w, "Flaky tests on "+d.Date)
		parts := make([]string, 0, len(d.Flaky))
		for _, f := range d.Flaky {
			parts = append(parts, fmt.Sprintf("%s (%d runs)", f.TestCaseID, f.Executions))
		}
		fmt.Fprintln(w, strings.Join(parts, ", "))
	}
}

func renderDayStatus(w io.Writer, r *report.DayStatusReport) {
	header(w, "Pipeline status for "+r.Day)

	t := newTable([]string{"Kind", "Definition", "Item", "Name", "Status"})
	for _, p := range r.Pipelines {
		item := p.ItemID
		if item == "" {
			item = "-"
		}
		t.Row(p.Kind, p.DefinitionID, item, truncate(p.Name), string(p.Label))
	}
	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "\nDay: %s\n", titleStyle.Render(string(r.Rollup)))
}
