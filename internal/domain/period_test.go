package domain

import "testing"

func TestPeriodKeyString(t *testing.T) {
	key := PeriodKey{GameType: "wingo", Duration: 60, Timeline: "a", PeriodID: "202608310047"}
	want := "wingo:60:a:202608310047"
	if got := key.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParsePeriodKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    PeriodKey
		wantErr bool
	}{
		{
			name: "canonical form",
			in:   "wingo:60:a:202608310047",
			want: PeriodKey{GameType: "wingo", Duration: 60, Timeline: "a", PeriodID: "202608310047"},
		},
		{
			name: "multi-die game",
			in:   "k3:180:b:202608310002",
			want: PeriodKey{GameType: "k3", Duration: 180, Timeline: "b", PeriodID: "202608310002"},
		},
		{name: "too few fields", in: "wingo:60:a", wantErr: true},
		{name: "non-numeric duration", in: "wingo:x:a:202608310047", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriodKey(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriodKey(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriodKey(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriodKey(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPeriodKeyRoundTrip(t *testing.T) {
	key := PeriodKey{GameType: "5d", Duration: 300, Timeline: "a", PeriodID: "202608310012"}
	got, err := ParsePeriodKey(key.String())
	if err != nil {
		t.Fatalf("ParsePeriodKey: %v", err)
	}
	if got != key {
		t.Errorf("round trip = %+v, want %+v", got, key)
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		stake, odds, want int64
	}{
		{100, 200, 200},   // 2.00x
		{100, 900, 900},   // 9.00x
		{100, 450, 450},   // 4.50x
		{250, 192, 480},   // 1.92x truncates toward zero
		{1, 192, 1},       // sub-unit stakes truncate
		{5000, 20736, 1036800},
	}
	for _, tt := range tests {
		if got := Payout(tt.stake, tt.odds); got != tt.want {
			t.Errorf("Payout(%d, %d) = %d, want %d", tt.stake, tt.odds, got, tt.want)
		}
	}
}

func TestVerificationHash(t *testing.T) {
	key := PeriodKey{GameType: "wingo", Duration: 60, Timeline: "a", PeriodID: "202608310047"}

	h1 := VerificationHash("secret-a", key, "7")
	h2 := VerificationHash("secret-a", key, "7")
	if h1 != h2 {
		t.Error("hash not deterministic for identical inputs")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	if VerificationHash("secret-b", key, "7") == h1 {
		t.Error("different secrets produced the same hash")
	}
	if VerificationHash("secret-a", key, "8") == h1 {
		t.Error("different outcomes produced the same hash")
	}

	other := key
	other.PeriodID = "202608310048"
	if VerificationHash("secret-a", other, "7") == h1 {
		t.Error("different periods produced the same hash")
	}
}
