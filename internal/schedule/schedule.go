// Package schedule holds the time-window utilities the booking engine is
// built on: half-open interval overlap, rounding to slot granularity, and
// parsing of free-text weekly opening hours ("Lun a Vie 09:00-18:00").
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// RoundUp rounds t forward to the next multiple of granularity minutes
// counted from midnight of the same day. Aligned instants are unchanged.
func RoundUp(t time.Time, granularityMin int) time.Time {
	if granularityMin <= 0 {
		return t
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	elapsed := int(t.Sub(midnight) / time.Minute)
	if t.Sub(midnight)%time.Minute != 0 {
		elapsed++
	}
	if rem := elapsed % granularityMin; rem != 0 {
		elapsed += granularityMin - rem
	}
	return midnight.Add(time.Duration(elapsed) * time.Minute)
}

// Range is one daily open-close window in wall-clock terms.
type Range struct {
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
}

// Overnight reports whether the range closes on the following day
// (close time at or before open time).
func (r Range) Overnight() bool {
	return r.CloseHour*60+r.CloseMin <= r.OpenHour*60+r.OpenMin
}

// Week is a parsed weekly opening-hours schedule.
type Week struct {
	Days   map[time.Weekday]bool
	Ranges []Range
}

// Empty reports whether the schedule imposes no constraint. Callers must
// treat an empty schedule as "generate slots from now using step = duration".
func (w Week) Empty() bool {
	return len(w.Days) == 0 || len(w.Ranges) == 0
}

// dayOrder is Monday-first, matching how schedules are written ("Lun a Vie").
var dayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var dayTokens = map[string]int{
	"lun": 0, "lunes": 0,
	"mar": 1, "martes": 1,
	"mie": 2, "miercoles": 2,
	"jue": 3, "jueves": 3,
	"vie": 4, "viernes": 4,
	"sab": 5, "sabado": 5, "sabados": 5,
	"dom": 6, "domingo": 6, "domingos": 6,
}

var timeRangeRe = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(?:-|a)\s*(\d{1,2}):(\d{2})`)

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// ParseSchedule converts free-text weekly opening hours into a Week.
// Unparsable text yields an empty schedule rather than an error.
func ParseSchedule(text string) Week {
	week := Week{Days: map[time.Weekday]bool{}}
	normalized := accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
	if normalized == "" {
		return week
	}

	for _, m := range timeRangeRe.FindAllStringSubmatch(normalized, -1) {
		r := Range{
			OpenHour:  atoi(m[1]),
			OpenMin:   atoi(m[2]),
			CloseHour: atoi(m[3]),
			CloseMin:  atoi(m[4]),
		}
		if r.OpenHour > 23 || r.CloseHour > 23 || r.OpenMin > 59 || r.CloseMin > 59 {
			continue
		}
		week.Ranges = append(week.Ranges, r)
	}

	// Strip the time ranges so only day vocabulary remains.
	rest := timeRangeRe.ReplaceAllString(normalized, " ")
	words := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '.'
	})

	pendingFrom := -1
	sawRangeSep := false
	for _, w := range words {
		if w == "a" || w == "-" || w == "hasta" {
			if pendingFrom >= 0 {
				sawRangeSep = true
			}
			continue
		}
		idx, ok := dayTokens[w]
		if !ok {
			sawRangeSep = false
			continue
		}
		switch {
		case sawRangeSep && pendingFrom >= 0:
			markDayRange(week.Days, pendingFrom, idx)
			pendingFrom = -1
			sawRangeSep = false
		default:
			week.Days[dayOrder[idx]] = true
			pendingFrom = idx
		}
	}

	return week
}

// markDayRange marks from..to inclusive, wrapping past Sunday if needed.
func markDayRange(days map[time.Weekday]bool, from, to int) {
	i := from
	for {
		days[dayOrder[i]] = true
		if i == to {
			return
		}
		i = (i + 1) % len(dayOrder)
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
