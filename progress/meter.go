package progress

import (
	"strconv"
	"strings"
)

const (
	// displayGranularity rounds announced counts down to a stable boundary
	// so consecutive messages use comparable values.
	displayGranularity = 512

	// minAnnounceDelta is how much the cumulative count must grow past the
	// last announced value before a new message is emitted.
	minAnnounceDelta = 1024
)

// Meter turns a stream of cumulative byte counts into throttled progress
// messages on a Session. It announces only when the count has grown by at
// least 1 KiB since the last announcement, and rounds the announced value
// down to a 512-byte boundary.
//
// A Meter is not safe for concurrent use; create one per transfer.
type Meter struct {
	session Session
	total   int64
	last    int64
}

// NewMeter creates a meter reporting to session. total is the expected
// transfer size in bytes; pass a negative value when it is unknown, and the
// messages omit the total.
func NewMeter(session Session, total int64) *Meter {
	return &Meter{
		session: session,
		total:   total,
	}
}

// Update processes a new cumulative count. Counts must be non-decreasing
// across calls. When the count has grown enough, a message such as
// "1.5 KiB/4 KiB downloaded" is sent to the session.
func (m *Meter) Update(cumulative int64) {
	if cumulative-m.last < minAnnounceDelta {
		return
	}
	display := cumulative / displayGranularity * displayGranularity
	msg := FormatBytes(display)
	if m.total >= 0 {
		msg += "/" + FormatBytes(m.total)
	}
	m.session.Progress(msg + " downloaded")
	m.last = display
}

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes renders a byte count with binary units and at most one
// fractional digit: 1536 is "1.5 KiB", 3072 is "3 KiB", 500 is "500 B".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	s := strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return s + " " + byteUnits[exp]
}
