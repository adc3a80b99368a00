package aggregator

import "testing"

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		input      string
		want       Strategy
		recognized bool
	}{
		{"priority", StrategyPriority, true},
		{"latest", StrategyLatest, true},
		{"manual", StrategyManual, true},
		{"merge", StrategyMerge, true},
		{"", StrategyPriority, true},
		{"newest", StrategyPriority, false},
		{"PRIORITY", StrategyPriority, false},
	}
	for _, tc := range cases {
		got, recognized := ParseStrategy(tc.input)
		if got != tc.want || recognized != tc.recognized {
			t.Errorf("ParseStrategy(%q) = (%v, %t), want (%v, %t)",
				tc.input, got, recognized, tc.want, tc.recognized)
		}
	}
}

func TestStrategyStringRoundTrip(t *testing.T) {
	for _, s := range []Strategy{StrategyPriority, StrategyLatest, StrategyManual, StrategyMerge} {
		parsed, recognized := ParseStrategy(s.String())
		if !recognized || parsed != s {
			t.Errorf("ParseStrategy(%q) = (%v, %t), want (%v, true)", s.String(), parsed, recognized, s)
		}
	}
}

func TestResolveByPriorityTieKeepsEarlierMember(t *testing.T) {
	group := []sourced[string]{
		{item: "first", sourceID: "a", priority: 50},
		{item: "second", sourceID: "b", priority: 50},
		{item: "third", sourceID: "c", priority: 40},
	}
	if got := resolveByPriority(group); got.item != "first" {
		t.Errorf("equal priorities should keep the earlier member, got %q", got.item)
	}
}
