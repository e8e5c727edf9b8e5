package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	h := time.Hour

	assert.True(t, Overlaps(base, base.Add(h), base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, Overlaps(base, base.Add(2*h), base.Add(h), base.Add(90*time.Minute)))
	// Touching endpoints do not overlap: intervals are half-open.
	assert.False(t, Overlaps(base, base.Add(h), base.Add(h), base.Add(2*h)))
	assert.False(t, Overlaps(base.Add(h), base.Add(2*h), base, base.Add(h)))
	assert.False(t, Overlaps(base, base.Add(h), base.Add(3*h), base.Add(4*h)))
}

func TestRoundUp(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, day.Add(10*time.Hour+15*time.Minute), RoundUp(day.Add(10*time.Hour+7*time.Minute), 15))
	assert.Equal(t, day.Add(10*time.Hour+15*time.Minute), RoundUp(day.Add(10*time.Hour+15*time.Minute), 15))
	assert.Equal(t, day.Add(11*time.Hour), RoundUp(day.Add(10*time.Hour+1*time.Minute), 60))
	// Sub-minute remainders push to the next boundary too.
	assert.Equal(t, day.Add(10*time.Hour+15*time.Minute), RoundUp(day.Add(10*time.Hour+14*time.Minute+30*time.Second), 15))
	assert.Equal(t, day.Add(10*time.Hour), RoundUp(day.Add(10*time.Hour), 0))
}

func TestParseScheduleDayRange(t *testing.T) {
	week := ParseSchedule("Lun a Vie 09:00-18:00")

	assert.False(t, week.Empty())
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		assert.True(t, week.Days[d], d.String())
	}
	assert.False(t, week.Days[time.Saturday])
	assert.False(t, week.Days[time.Sunday])

	assert.Equal(t, []Range{{OpenHour: 9, OpenMin: 0, CloseHour: 18, CloseMin: 0}}, week.Ranges)
	assert.False(t, week.Ranges[0].Overnight())
}

func TestParseScheduleSingleDayWithAccents(t *testing.T) {
	week := ParseSchedule("Sábado 10:00 a 14:00")

	assert.True(t, week.Days[time.Saturday])
	assert.Len(t, week.Days, 1)
	assert.Equal(t, []Range{{OpenHour: 10, OpenMin: 0, CloseHour: 14, CloseMin: 0}}, week.Ranges)
}

func TestParseScheduleSeparateDays(t *testing.T) {
	week := ParseSchedule("Vie y Sab 20:00-02:00")

	assert.True(t, week.Days[time.Friday])
	assert.True(t, week.Days[time.Saturday])
	assert.Len(t, week.Days, 2)
	assert.True(t, week.Ranges[0].Overnight())
}

func TestParseScheduleWrapsPastSunday(t *testing.T) {
	week := ParseSchedule("Sab a Lun 10:00-12:00")

	assert.True(t, week.Days[time.Saturday])
	assert.True(t, week.Days[time.Sunday])
	assert.True(t, week.Days[time.Monday])
	assert.Len(t, week.Days, 3)
}

func TestParseScheduleUnparsableIsEmpty(t *testing.T) {
	assert.True(t, ParseSchedule("").Empty())
	assert.True(t, ParseSchedule("siempre abierto").Empty())
	// Days without hours still leave the schedule unusable.
	assert.True(t, ParseSchedule("Lun a Vie").Empty())
}

func TestParseScheduleMultipleRanges(t *testing.T) {
	week := ParseSchedule("Lun a Vie 09:00-13:00 y 16:00-20:00")

	assert.Len(t, week.Ranges, 2)
	assert.Equal(t, Range{OpenHour: 16, OpenMin: 0, CloseHour: 20, CloseMin: 0}, week.Ranges[1])
}
