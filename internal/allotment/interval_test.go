package allotment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	got, err := ParseInstant("2025-03-10", "09:30", nil)
	require.NoError(t, err)
	want := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, Instant(want), got)

	single, err := ParseInstant("2025-03-10", "9:30", nil)
	require.NoError(t, err)
	assert.Equal(t, got, single)

	jakarta := time.FixedZone("WIB", 7*3600)
	local, err := ParseInstant("2025-03-10", "09:30", jakarta)
	require.NoError(t, err)
	assert.Equal(t, got-Instant(7*time.Hour/time.Millisecond), local)
}

func TestParseInstantRejectsGarbage(t *testing.T) {
	for _, tc := range []struct{ date, hhmm string }{
		{"2025-02-30", "09:00"},
		{"10/03/2025", "09:00"},
		{"2025-03-10", "25:00"},
		{"2025-03-10", ""},
	} {
		_, err := ParseInstant(tc.date, tc.hhmm, nil)
		assert.ErrorIs(t, err, ErrUnparseableTime, "%s %s", tc.date, tc.hhmm)
	}
}

func TestIntervalDuration(t *testing.T) {
	iv, err := ParseInterval("2025-03-10", "09:00", "10:30", nil)
	require.NoError(t, err)
	assert.True(t, iv.Valid())
	assert.Equal(t, 90, iv.DurationMinutes())

	inverted, err := ParseInterval("2025-03-10", "11:00", "10:00", nil)
	require.NoError(t, err)
	assert.False(t, inverted.Valid())
	assert.Equal(t, 0, inverted.DurationMinutes())
}

func TestOverlaps(t *testing.T) {
	const m = Instant(60_000)
	cases := []struct {
		name                 string
		aStart, aEnd, bS, bE Instant
		gap                  int
		want                 bool
	}{
		{"disjoint", 0, 60 * m, 120 * m, 180 * m, 0, false},
		{"touching", 0, 60 * m, 60 * m, 120 * m, 0, false},
		{"touching with gap", 0, 60 * m, 60 * m, 120 * m, 15, true},
		{"gap exactly met", 0, 60 * m, 75 * m, 120 * m, 15, false},
		{"nested", 0, 180 * m, 60 * m, 120 * m, 0, true},
		{"partial", 0, 90 * m, 60 * m, 120 * m, 0, true},
		{"negative gap clamps", 0, 60 * m, 60 * m, 120 * m, -30, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bS, tc.bE, tc.gap))
		})
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	points := []Instant{0, 30, 60, 90, 120}
	for _, aS := range points {
		for _, aE := range points {
			for _, bS := range points {
				for _, bE := range points {
					for _, gap := range []int{0, 1, 5} {
						ab := Overlaps(aS*60_000, aE*60_000, bS*60_000, bE*60_000, gap)
						ba := Overlaps(bS*60_000, bE*60_000, aS*60_000, aE*60_000, gap)
						require.Equal(t, ab, ba, "a=[%d,%d) b=[%d,%d) gap=%d", aS, aE, bS, bE, gap)
					}
				}
			}
		}
	}
}
