package slashkit

import (
	"fmt"
	"time"
)

// Timestamp style suffixes understood by Discord clients
const (
	TimestampShortTime = "t"
	TimestampLongTime  = "T"
	TimestampShortDate = "d"
	TimestampLongDate  = "D"
	TimestampShort     = "f"
	TimestampLong      = "F"
	TimestampRelative  = "R"
)

// Timestamp renders a time as Discord timestamp markup, which clients
// display in the viewer's local timezone. Cooldown replies use the relative
// style so the retry moment counts down on screen.
type Timestamp struct {
	time.Time
}

func CreateTimestamp(t time.Time) Timestamp {
	return Timestamp{t}
}

// Styled renders the timestamp with one of the style suffixes above
func (t Timestamp) Styled(style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// RelativeString renders the timestamp as "in 5 minutes" style markup
func (t Timestamp) RelativeString() string {
	return t.Styled(TimestampRelative)
}

// String renders the timestamp in the client's default format
func (t Timestamp) String() string {
	return fmt.Sprintf("<t:%d>", t.Unix())
}
