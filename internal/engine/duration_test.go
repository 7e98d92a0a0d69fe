package engine

import "testing"

func TestParseDurationToSeconds(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "hours", text: "3 hours", want: 3 * 3600},
		{name: "single hour", text: "1 hour", want: 3600},
		{name: "minutes", text: "90 minutes", want: 90 * 60},
		{name: "mixed hour and minutes", text: "1 hour 30 minutes", want: 3600 + 30*60},
		{name: "case insensitive", text: "2 HOURS", want: 2 * 3600},
		{name: "abbreviated hrs", text: "2 hrs", want: 2 * 3600},
		{name: "abbreviated mins", text: "45 mins", want: 45 * 60},
		{name: "garbled falls back", text: "soon-ish", want: DefaultDurationSeconds},
		{name: "empty falls back", text: "", want: DefaultDurationSeconds},
		{name: "number without unit falls back", text: "42", want: DefaultDurationSeconds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseDurationToSeconds(tc.text); got != tc.want {
				t.Fatalf("ParseDurationToSeconds(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestSecondsTimeObjectRoundTrip(t *testing.T) {
	for s := 0; s <= 4*3600; s++ {
		obj := SecondsToTimeObject(s)
		if obj.Seconds < 0 || obj.Seconds > 59 {
			t.Fatalf("SecondsToTimeObject(%d) produced out-of-range seconds %d", s, obj.Seconds)
		}
		if got := TimeObjectToSeconds(obj); got != s {
			t.Fatalf("round trip of %d returned %d", s, got)
		}
	}
}

func TestSecondsToTimeObjectNegativeClamped(t *testing.T) {
	obj := SecondsToTimeObject(-10)
	if obj.Minutes != 0 || obj.Seconds != 0 {
		t.Fatalf("expected negative input clamped to zero, got %+v", obj)
	}
}
