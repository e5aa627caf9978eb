package domain

import "time"

// TimestampField is the key stamped into notification hub payloads at send time.
const TimestampField = "timestamp"

// StampedData carries a notification payload that is not a JSON object, or
// dashboard data, together with its send time.
type StampedData struct {
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
