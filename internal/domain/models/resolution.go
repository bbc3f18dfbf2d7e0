package models

import (
	"fmt"
	"time"
)

// Resolution is the step size of a simulated horizon, e.g. "1m" or "1h".
type Resolution string

// ResolutionOf formats d as a compact resolution label.
func ResolutionOf(d time.Duration) Resolution {
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0:
		return Resolution(fmt.Sprintf("%dh", d/time.Hour))
	case d%time.Minute == 0:
		return Resolution(fmt.Sprintf("%dm", d/time.Minute))
	default:
		return Resolution(fmt.Sprintf("%ds", d/time.Second))
	}
}

// Duration parses the label back into a duration.
func (r Resolution) Duration() (time.Duration, error) {
	d, err := time.ParseDuration(string(r))
	if err != nil {
		return 0, fmt.Errorf("invalid resolution %q: %w", r, err)
	}
	return d, nil
}
