package protocol

import "time"

// Timestamp counts milliseconds since the Unix epoch. It is the unit of
// the iat and exp claims of certificates and assertions.
type Timestamp uint64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return Timestamp(ms)
}

// Time converts ts back to a time.Time in UTC.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

// Add returns ts shifted by d, saturating at zero.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	ms := int64(ts) + d.Milliseconds()
	if ms < 0 {
		return 0
	}
	return Timestamp(ms)
}
