package fuzzy

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"ab", "ba", 1},   // adjacent transposition
		{"ca", "abc", 3},  // transposition does not chain with later edits
		{"tokn", "token", 1},
		{"kitten", "sitting", 3},
	}

	for _, tc := range cases {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		if got := Distance(tc.b, tc.a); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestFindClosest(t *testing.T) {
	cases := []struct {
		candidates []string
		target     string
		want       []string
		ok         bool
	}{
		// No candidates at all: empty non-nil suggestion list.
		{[]string{}, "anything", []string{}, true},
		// An exact match means nothing needs suggesting.
		{[]string{"token", "proxy"}, "token", nil, false},
		// Single closest.
		{[]string{"ab", "xy"}, "a", []string{"ab"}, true},
		// All co-minimal candidates, in input order.
		{[]string{"ab", "ba"}, "a", []string{"ab", "ba"}, true},
		{[]string{"token", "tokens", "proxy"}, "tokn", []string{"token"}, true},
	}

	for _, tc := range cases {
		got, ok := FindClosest(tc.candidates, tc.target)
		if ok != tc.ok {
			t.Errorf("FindClosest(%v, %q) ok = %v, want %v", tc.candidates, tc.target, ok, tc.ok)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("FindClosest(%v, %q) = %#v, want %#v", tc.candidates, tc.target, got, tc.want)
		}
	}
}
