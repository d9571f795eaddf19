package streak

import (
	"strings"
	"time"
)

const (
	// MinutesThreshold is the minimum minutes of play in a day for that
	// day to count toward the streak.
	MinutesThreshold = 10

	// MaxActivitiesPerUser caps the number of distinct activity titles
	// tracked per user. Once at the cap, new titles are rejected but
	// existing titles keep updating.
	MaxActivitiesPerUser = 100

	// MaxTitleLength is the longest activity title stored as a map key.
	MaxTitleLength = 128

	dateLayout = "2006-01-02"
)

// Record is the per-(user, activity) streak state.
//
// Days only changes when LastDate changes (a day boundary was crossed
// since the previous update). MinutesToday is a high-water mark of
// observed session minutes within the current day, never an accumulator,
// and resets to 0 exactly when LastDate advances.
type Record struct {
	LastDate     string `json:"lastDate"`
	Days         int    `json:"days"`
	MinutesToday int    `json:"minutesToday"`
}

// Table maps sanitized activity titles to their streak records. It is
// persisted as a single JSON value per user.
type Table map[string]Record

// Update applies one observation to a record and returns the result.
// sessionStart is the epoch-millisecond start of the current activity
// session, or 0 when no session is active (no minutes update).
//
// Day boundaries are detected only by LastDate != today's date; a gap of
// two or more calendar days is not treated specially, matching the
// long-standing behavior of this counter.
func Update(rec Record, sessionStart int64, now time.Time) Record {
	if sessionStart > 0 {
		mins := int((now.UnixMilli() - sessionStart) / 60000)
		if mins > rec.MinutesToday {
			rec.MinutesToday = mins
		}
	}

	today := now.Format(dateLayout)
	if rec.LastDate != today {
		// MinutesToday still holds the previous day's high-water mark
		// at this point.
		if rec.MinutesToday >= MinutesThreshold {
			rec.Days++
		} else {
			rec.Days = 1
		}
		rec.MinutesToday = 0
		rec.LastDate = today
	}

	return rec
}

// DisplayDays is the consumer-facing streak count. A brand-new record can
// carry a stored value of 0 before its first day-boundary update; it is
// always reported as at least 1.
func DisplayDays(rec Record) int {
	if rec.Days < 1 {
		return 1
	}
	return rec.Days
}

// TrackableType reports whether an activity type code counts toward
// streaks: 0 (Playing) and 5 (Competing).
func TrackableType(activityType int) bool {
	return activityType == 0 || activityType == 5
}

// SanitizeTitle normalizes an activity name for use as a Table key:
// trimmed and capped at MaxTitleLength runes. Names that would collide
// with structural object properties are rejected with ok=false, as is an
// empty name.
func SanitizeTitle(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if runes := []rune(trimmed); len(runes) > MaxTitleLength {
		trimmed = string(runes[:MaxTitleLength])
	}
	if trimmed == "" {
		return "", false
	}
	switch strings.ToLower(trimmed) {
	case "__proto__", "constructor", "prototype":
		return "", false
	}
	return trimmed, true
}
