package common

import "testing"

func TestSpeedText(t *testing.T) {
	cases := []struct {
		speed, eta int64
		want       string
	}{
		{0, 0, ""},
		{2048, 0, "2.0 KiB/s"},
		{2048, 45, "2.0 KiB/s  eta 45s"},
		{0, 45, "45s"},
	}
	for _, c := range cases {
		if got := SpeedText(c.speed, c.eta); got != c.want {
			t.Errorf("SpeedText(%d, %d): expected %q, got %q", c.speed, c.eta, c.want, got)
		}
	}
}
