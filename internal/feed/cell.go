package feed

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellKind discriminates the tagged union of values a table cell can
// hold. The host page emits JSON, so the only shapes that ever arrive
// are string, number, boolean and null.
type CellKind int

const (
	CellAbsent CellKind = iota
	CellString
	CellNumber
	CellBool
)

// Cell is one value of the flat columnar payload.
type Cell struct {
	kind CellKind
	str  string
	num  float64
	flag bool
}

func String(s string) Cell  { return Cell{kind: CellString, str: s} }
func Number(n float64) Cell { return Cell{kind: CellNumber, num: n} }
func Bool(b bool) Cell      { return Cell{kind: CellBool, flag: b} }
func Absent() Cell          { return Cell{} }

func (c Cell) Kind() CellKind { return c.kind }

// Text renders the cell for keyword matching and display. Absent cells
// render empty so missing columns behave as empty values downstream.
func (c Cell) Text() string {
	switch c.kind {
	case CellString:
		return c.str
	case CellNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case CellBool:
		if c.flag {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// IsTruthyFlag reports whether the cell marks a header/subtotal row.
// The host system uses boolean true, "X" or the string "true".
func (c Cell) IsTruthyFlag() bool {
	switch c.kind {
	case CellBool:
		return c.flag
	case CellString:
		return c.str == "X" || c.str == "true"
	default:
		return false
	}
}

// intValue returns the cell as an exact integer when it holds one.
func (c Cell) intValue() (int, bool) {
	if c.kind != CellNumber {
		return 0, false
	}
	n := int(c.num)
	if float64(n) != c.num {
		return 0, false
	}
	return n, true
}

// CellsFromJSON converts a decoded JSON array into cells. encoding/json
// yields string, float64, bool and nil for the value shapes the host
// page produces; anything else is treated as absent.
func CellsFromJSON(vals []any) []Cell {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			cells[i] = String(t)
		case float64:
			cells[i] = Number(t)
		case bool:
			cells[i] = Bool(t)
		default:
			cells[i] = Absent()
		}
	}
	return cells
}

var sapDatePattern = regexp.MustCompile(`^/Date\((-?\d+)\)/$`)

// timestampLayouts are tried in order for string-valued date cells.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimestampMillis extracts an epoch-millisecond timestamp from a date
// cell. Numeric cells are epoch millis, string cells may be SAP OData
// /Date(ms)/ wrappers or ISO-style datetimes. Returns 0 when the cell
// holds nothing parseable.
func (c Cell) TimestampMillis() int64 {
	switch c.kind {
	case CellNumber:
		if c.num > 0 {
			return int64(c.num)
		}
	case CellString:
		s := strings.TrimSpace(c.str)
		if s == "" {
			return 0
		}
		if m := sapDatePattern.FindStringSubmatch(s); m != nil {
			if ms, err := strconv.ParseInt(m[1], 10, 64); err == nil && ms > 0 {
				return ms
			}
			return 0
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli()
			}
		}
	}
	return 0
}
