package timer

import (
	"sync/atomic"
	"time"
)

// Time contains the unix-time in milliseconds, updated every Resolution.
var Time = new(atomic.Int64)

func Now() time.Time {
	millis := Time.Load()
	return time.Unix(millis/1000, (millis%1000)*1e6)
}

// Resolution is the frequency at which Time is refreshed. 500ms is precise
// enough for arming I/O deadlines.
const Resolution = 500 * time.Millisecond

func init() {
	Time.Store(time.Now().UnixMilli())

	go func() {
		for {
			Time.Store(time.Now().UnixMilli())
			time.Sleep(Resolution)
		}
	}()
}
