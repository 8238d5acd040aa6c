package output

import "time"

// Frame is the JSON shape of a message on the wire.
type Frame struct {
	Event string     `json:"event"`
	Data  any        `json:"data"`
	Time  *time.Time `json:"time,omitempty"`
}

// FormatMessage converts a message to its wire frame. Subscribers receive
// frames without a timestamp; mirrors that log broadcasts keep it.
func FormatMessage(m Message, withTime bool) Frame {
	f := Frame{Event: m.Event, Data: m.Data}
	if withTime && !m.Time.IsZero() {
		t := m.Time
		f.Time = &t
	}
	return f
}
