package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/keyo-app/pulse-toast/internal/history"
)

// TableFormatter prints records in aligned columns with headers.
type TableFormatter struct {
	now func() time.Time
}

// FormatRecords implements Formatter.
func (f *TableFormatter) FormatRecords(records []history.Record, writer io.Writer) error {
	if len(records) == 0 {
		return nil
	}
	now := f.now()
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATE\tAGE\tLIFETIME\tTEXT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ShortID(r.ID),
			r.Kind,
			State(r),
			Age(r.CreatedAt, now),
			Lifetime(r),
			RecordText(r),
		)
	}
	return tw.Flush()
}

// Age returns how long ago t was, e.g. "3 minutes ago".
func Age(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Lifetime returns how long a removed toast was live, or "-" for a live one.
func Lifetime(r history.Record) string {
	if r.Live() {
		return "-"
	}
	return strings.TrimSpace(humanize.RelTime(r.CreatedAt, r.RemovedAt, "", ""))
}
