// Package calendar writes synthesized schedules as iCalendar (RFC 5545)
// documents and reads back the events of such documents.
package calendar

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/clock"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/schedule"
)

// ContentType is the MIME type of an exported document.
const ContentType = "text/calendar; charset=utf-8"

const (
	stampLayout = "20060102T150405Z"
	localLayout = "20060102T150405"
	maxLine     = 75
)

// Options controls the calendar header and per-event extras.
type Options struct {
	TZID         string
	Offset       time.Duration
	CalendarName string
	ProductID    string
	UIDDomain    string
	// HTMLNotes renders task notes as Markdown into X-ALT-DESC.
	HTMLNotes bool
	// Transparency, when set, is emitted as TRANSP on every event.
	Transparency string
	Now          func() time.Time
}

// DefaultOptions returns the fixed +08:00 zone setup.
func DefaultOptions() Options {
	return Options{
		TZID:         "Asia/Shanghai",
		Offset:       8 * time.Hour,
		CalendarName: "My Planner",
		ProductID:    "-//Planner//Daily Schedule//EN",
		UIDDomain:    "goalplanner",
		Now:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TZID == "" {
		o.TZID = d.TZID
		if o.Offset == 0 {
			o.Offset = d.Offset
		}
	}
	if o.CalendarName == "" {
		o.CalendarName = d.CalendarName
	}
	if o.ProductID == "" {
		o.ProductID = d.ProductID
	}
	if o.UIDDomain == "" {
		o.UIDDomain = d.UIDDomain
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Location returns the fixed zone events are written in.
func (o Options) Location() *time.Location {
	o = o.withDefaults()
	return time.FixedZone(o.TZID, int(o.Offset/time.Second))
}

// Filename returns the conventional file name for ref's schedule.
func Filename(ref time.Time) string {
	return "schedule-" + ref.Format("20060102") + ".ics"
}

// Encode writes entries as events on ref's calendar date. An empty
// schedule is an error and produces no output.
func Encode(entries []models.ScheduleEntry, ref time.Time, opts Options) ([]byte, error) {
	return EncodeDays([]schedule.DayPlan{{Date: ref, Entries: entries}}, opts)
}

// EncodeDays writes the entries of several days into one document.
func EncodeDays(days []schedule.DayPlan, opts Options) ([]byte, error) {
	total := 0
	for _, d := range days {
		total += len(d.Entries)
	}
	if total == 0 {
		return nil, &apperr.EmptyScheduleError{}
	}

	opts = opts.withDefaults()
	loc := opts.Location()
	now := opts.Now()

	w := &writer{}
	w.line("BEGIN:VCALENDAR")
	w.line("VERSION:2.0")
	w.prop("PRODID", opts.ProductID)
	w.line("CALSCALE:GREGORIAN")
	w.line("METHOD:PUBLISH")
	w.prop("X-WR-CALNAME", escape(opts.CalendarName))
	w.prop("X-WR-TIMEZONE", opts.TZID)
	writeTimezone(w, opts)

	idx := 0
	for _, d := range days {
		for _, e := range d.Entries {
			if err := writeEvent(w, e, d.Date, idx, now, loc, opts); err != nil {
				return nil, err
			}
			idx++
		}
	}
	w.line("END:VCALENDAR")
	return w.buf.Bytes(), nil
}

func writeTimezone(w *writer, opts Options) {
	off := formatOffset(opts.Offset)
	w.line("BEGIN:VTIMEZONE")
	w.prop("TZID", opts.TZID)
	w.line("BEGIN:STANDARD")
	w.line("DTSTART:19700101T000000")
	w.prop("TZOFFSETFROM", off)
	w.prop("TZOFFSETTO", off)
	w.line("END:STANDARD")
	w.line("END:VTIMEZONE")
}

func writeEvent(w *writer, e models.ScheduleEntry, day time.Time, idx int, now time.Time, loc *time.Location, opts Options) error {
	start := clock.On(day, e.StartTime, loc)
	end := start.Add(time.Duration(e.Duration) * time.Minute)

	w.line("BEGIN:VEVENT")
	w.prop("UID", fmt.Sprintf("%d-%d@%s", now.UnixMilli(), idx, opts.UIDDomain))
	w.prop("DTSTAMP", now.UTC().Format(stampLayout))
	w.prop("DTSTART;TZID="+opts.TZID, start.Format(localLayout))
	w.prop("DTEND;TZID="+opts.TZID, end.Format(localLayout))
	w.prop("SUMMARY", escape(e.Item.Name))
	w.prop("DESCRIPTION", escape(description(e)))
	if opts.HTMLNotes && e.Kind == models.KindTask && (e.Item.Preparation != "" || e.Item.Guidance != "") {
		html, err := renderNotes(e.Item)
		if err != nil {
			return fmt.Errorf("calendar: render notes for %q: %w", e.Item.Name, err)
		}
		w.prop("X-ALT-DESC;FMTTYPE=text/html", escape(html))
	}
	w.line("STATUS:CONFIRMED")
	w.line("SEQUENCE:0")
	if opts.Transparency != "" {
		w.prop("TRANSP", opts.Transparency)
	}
	w.line("END:VEVENT")
	return nil
}

func description(e models.ScheduleEntry) string {
	if e.Kind != models.KindTask {
		return "Activity"
	}
	var b strings.Builder
	b.WriteString("Task")
	if e.Item.Preparation != "" {
		b.WriteString("\nPreparation: ")
		b.WriteString(e.Item.Preparation)
	}
	if e.Item.Guidance != "" {
		b.WriteString("\nGuidance: ")
		b.WriteString(e.Item.Guidance)
	}
	return b.String()
}

func renderNotes(item models.EntryItem) (string, error) {
	var src strings.Builder
	if item.Preparation != "" {
		src.WriteString("**Preparation**\n\n")
		src.WriteString(item.Preparation)
		src.WriteString("\n\n")
	}
	if item.Guidance != "" {
		src.WriteString("**Guidance**\n\n")
		src.WriteString(item.Guidance)
		src.WriteString("\n")
	}
	var out bytes.Buffer
	if err := goldmark.Convert([]byte(src.String()), &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

func formatOffset(d time.Duration) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%c%02d%02d", sign, mins/60, mins%60)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// escape encodes a TEXT value.
func escape(s string) string {
	return escaper.Replace(s)
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) prop(name, value string) {
	w.line(name + ":" + value)
}

// line writes one content line, folded at 75 octets without splitting a
// UTF-8 sequence.
func (w *writer) line(s string) {
	limit := maxLine
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		w.buf.WriteString(s[:cut])
		w.buf.WriteString("\r\n ")
		s = s[cut:]
		// Continuation lines begin with a space that counts toward the limit.
		limit = maxLine - 1
	}
	w.buf.WriteString(s)
	w.buf.WriteString("\r\n")
}
