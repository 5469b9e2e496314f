package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/starford/planner/internal/apperr"
)

// Event is a VEVENT read back from a document.
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Document is the decoded content of a calendar file.
type Document struct {
	Name   string
	TZID   string
	Events []Event
}

type property struct {
	name   string
	params map[string]string
	value  string
}

// Decode reads the events of a document written by Encode. Local times are
// resolved against the document's single VTIMEZONE offset.
func Decode(r io.Reader) (*Document, error) {
	lines, err := unfold(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	loc := time.UTC
	var cur *Event
	inTZ := false

	for _, raw := range lines {
		if raw == "" {
			continue
		}
		p, err := parseProperty(raw)
		if err != nil {
			return nil, err
		}
		switch {
		case p.name == "BEGIN" && p.value == "VTIMEZONE":
			inTZ = true
		case p.name == "END" && p.value == "VTIMEZONE":
			inTZ = false
		case p.name == "BEGIN" && p.value == "VEVENT":
			cur = &Event{}
		case p.name == "END" && p.value == "VEVENT":
			if cur != nil {
				doc.Events = append(doc.Events, *cur)
				cur = nil
			}
		case inTZ && p.name == "TZID":
			doc.TZID = p.value
		case inTZ && p.name == "TZOFFSETTO":
			off, err := parseOffset(p.value)
			if err != nil {
				return nil, err
			}
			loc = time.FixedZone(doc.TZID, off)
		case cur == nil && p.name == "X-WR-CALNAME":
			doc.Name = unescape(p.value)
		case cur != nil:
			if err := cur.set(p, loc); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func (e *Event) set(p property, loc *time.Location) error {
	var err error
	switch p.name {
	case "UID":
		e.UID = p.value
	case "SUMMARY":
		e.Summary = unescape(p.value)
	case "DESCRIPTION":
		e.Description = unescape(p.value)
	case "DTSTART":
		e.Start, err = parseTime(p.value, loc)
	case "DTEND":
		e.End, err = parseTime(p.value, loc)
	}
	return err
}

func unfold(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l := strings.TrimRight(sc.Text(), "\r")
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(out) > 0 {
			out[len(out)-1] += l[1:]
			continue
		}
		out = append(out, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("calendar: read: %w", err)
	}
	return out, nil
}

func parseProperty(l string) (property, error) {
	head, value, ok := strings.Cut(l, ":")
	if !ok {
		return property{}, apperr.Validation("calendar", fmt.Sprintf("malformed line %q", l))
	}
	parts := strings.Split(head, ";")
	p := property{name: strings.ToUpper(parts[0]), value: value}
	for _, kv := range parts[1:] {
		k, v, _ := strings.Cut(kv, "=")
		if p.params == nil {
			p.params = make(map[string]string)
		}
		p.params[strings.ToUpper(k)] = v
	}
	return p, nil
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse(stampLayout, v)
	}
	t, err := time.ParseInLocation(localLayout, v, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("calendar", fmt.Sprintf("bad date-time %q", v))
	}
	return t, nil
}

func parseOffset(v string) (int, error) {
	if len(v) != 5 || (v[0] != '+' && v[0] != '-') {
		return 0, apperr.Validation("calendar", fmt.Sprintf("bad offset %q", v))
	}
	h, err1 := strconv.Atoi(v[1:3])
	m, err2 := strconv.Atoi(v[3:5])
	if err1 != nil || err2 != nil {
		return 0, apperr.Validation("calendar", fmt.Sprintf("bad offset %q", v))
	}
	secs := h*3600 + m*60
	if v[0] == '-' {
		secs = -secs
	}
	return secs, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
