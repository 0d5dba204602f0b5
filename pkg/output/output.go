package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/cockroachdb/errors"

	"github.com/stefanpenner/testpulse/pkg/report"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// maxNameWidth bounds run and pipeline names in table cells.
const maxNameWidth = 48

// ErrUnknownFormat is returned for formats other than table and json.
var ErrUnknownFormat = errors.New("unknown output format")

// Render writes value as indented JSON or, for the report types, as tables.
func Render(w io.Writer, format string, value any) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, value)
	case FormatTable, "":
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	switch v := value.(type) {
	case *report.SessionsReport:
		renderSessions(w, v)
	case *report.TrendReport:
		renderTrend(w, v)
	case *report.MonthlyReport:
		renderMonthly(w, v)
	case *report.DayStatusReport:
		renderDayStatus(w, v)
	default:
		return writeJSON(w, value)
	}
	return nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func header(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 80))
	fmt.Fprintf(w, "%s\n", titleStyle.Render(title))
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 80))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(title)))
}

func truncate(name string) string {
	return ansi.Truncate(name, maxNameWidth, "…")
}

func formatDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 2, 64) + "%"
}

func formatChange(change int) string {
	if change > 0 {
		return "+" + strconv.Itoa(change)
	}
	return strconv.Itoa(change)
}

func orDash(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}
