package todo

import (
	"strings"
	"time"
)

// DateLayout is the yyyy-MM-dd form target dates are exchanged in.
const DateLayout = "2006-01-02"

// Todo is one to-do record owned by a single user.
//
// Owner is assigned from the authenticated identity when the record is created
// and never changes afterwards. TargetDate is a calendar date held as midnight UTC.
type Todo struct {
	ID          int64     `json:"id" bson:"_id"`
	Owner       string    `json:"username" bson:"owner"`
	Description string    `json:"description" bson:"description"`
	TargetDate  time.Time `json:"targetDate" bson:"targetDate"`
	Done        bool      `json:"done" bson:"done"`
}

// ParseDate parses a yyyy-MM-dd date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate renders a target date as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DateOf drops the time of day, keeping the calendar date of t in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
