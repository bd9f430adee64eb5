package redis

import "testing"

func TestChannelNaming(t *testing.T) {
	tests := []struct {
		fn   func(string, int, string) string
		want string
	}{
		{PeriodChannel, "ch:period:wingo:60:a"},
		{ResultChannel, "ch:result:wingo:60:a"},
	}
	for _, tt := range tests {
		if got := tt.fn("wingo", 60, "a"); got != tt.want {
			t.Errorf("channel = %q, want %q", got, tt.want)
		}
	}

	// The broadcast hub pattern-subscribes across pairs; the layout must
	// keep pair segments after a stable prefix for that to keep working.
	if got := PeriodChannel("k3", 180, "b"); got != "ch:period:k3:180:b" {
		t.Errorf("PeriodChannel = %q", got)
	}
}
