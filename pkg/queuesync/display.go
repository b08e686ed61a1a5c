package queuesync

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Pure display formatters for raw record fields. They are invoked at
// render time; stores hold raw values only.

// FormatSize renders a byte count, e.g. "1.5 GiB". Zero or negative
// sizes render as an empty string (size unknown).
func FormatSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.IBytes(uint64(n))
}

// FormatSpeed renders a transfer rate in bytes per second.
func FormatSpeed(bps int64) string {
	if bps <= 0 {
		return ""
	}
	return humanize.IBytes(uint64(bps)) + "/s"
}

// FormatETA renders remaining seconds as "1h02m03s", "2m03s" or "45s".
func FormatETA(sec int64) string {
	if sec <= 0 {
		return ""
	}
	d := time.Duration(sec) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatPercent renders a completion percentage with one decimal.
func FormatPercent(p float64) string {
	if p <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", p)
}
