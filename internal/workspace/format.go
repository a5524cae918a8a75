package workspace

import (
	"fmt"
	"time"
)

// FormatClock renders a duration as HH:MM:SS; negative durations render as zero
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
