package parser

import (
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// isDateFormatID reports whether a built-in or locale number format ID
// renders a date or time. Both engines share the ID space.
func isDateFormatID(id int) bool {
	switch {
	case 14 <= id && id <= 22,
		27 <= id && id <= 36,
		45 <= id && id <= 47,
		50 <= id && id <= 58,
		71 <= id && id <= 81:
		return true
	}
	return false
}

// isDateFormatCode reports whether the first section of a custom number
// format code contains a date or time token. Quoted literals, escaped and
// padding characters, and bracketed colors or conditions are skipped;
// elapsed-time brackets such as [h] count as time tokens.
func isDateFormatCode(code string) bool {
	for i := 0; i < len(code); i++ {
		switch c := code[i]; c {
		case '"':
			j := strings.IndexByte(code[i+1:], '"')
			if j < 0 {
				return false
			}
			i += j + 1
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i+1:], ']')
			if j < 0 {
				return false
			}
			tok := strings.ToLower(code[i+1 : i+1+j])
			if tok != "" && strings.Trim(tok, "hms") == "" {
				return true
			}
			i += j + 1
		case ';':
			return false
		default:
			switch c | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

// serialToTime converts a spreadsheet date serial to a time. ok is false
// for serials that do not map to a date.
func serialToTime(serial float64, date1904 bool) (time.Time, bool) {
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// isoDateLayouts are the layouts of ISO 8601 date cells (t="d").
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
