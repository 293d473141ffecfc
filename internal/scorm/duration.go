package scorm

import (
	"fmt"
	"regexp"
	"strconv"
)

// Timeinterval parsing for cmi.session_time. SCORM 2004 sends an ISO-8601
// style duration of the form PT[#H][#M][#S] where the seconds component may
// be fractional. Only the front of the string is matched: trailing junk is
// tolerated, and a token without the PT prefix parses as no match. Both
// behaviors are load-bearing for existing content packages.
var sessionTimeRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?`)

// ParseSessionTime converts a PT#H#M#S token into whole seconds, truncating
// the fractional part of the total. ok is false when the token does not
// start with a duration at all, in which case the caller ignores it.
func ParseSessionTime(value string) (seconds int64, ok bool) {
	m := sessionTimeRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	var hours, minutes int64
	var secs float64
	if m[1] != "" {
		hours, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m[2] != "" {
		minutes, _ = strconv.ParseInt(m[2], 10, 64)
	}
	if m[3] != "" {
		secs, _ = strconv.ParseFloat(m[3], 64)
	}
	return int64(float64(hours*3600+minutes*60) + secs), true
}

// FormatDuration renders stored whole seconds back as PT#S. The stored
// representation is always normalized to seconds regardless of how the
// input spelled the duration.
func FormatDuration(seconds int64) string {
	if seconds == 0 {
		return "PT0S"
	}
	return fmt.Sprintf("PT%dS", seconds)
}
