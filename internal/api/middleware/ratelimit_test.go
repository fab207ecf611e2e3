package middleware

import (
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(2, 3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("request beyond burst allowed")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("other IP must have its own bucket")
	}

	now = now.Add(500 * time.Millisecond) // refills one token at 2 rps
	if !rl.allow("1.2.3.4") {
		t.Fatal("token not refilled")
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("only one token should have been refilled")
	}
}

func TestRateLimiter_Evict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.allow("1.2.3.4")

	rl.evict(now.Add(time.Second))
	if len(rl.buckets) != 0 {
		t.Fatalf("expected stale bucket evicted, have %d", len(rl.buckets))
	}
}

func TestParseAccount(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"0x000000000000000000000000000000000000a11c", true},
		{" 0x000000000000000000000000000000000000A11C ", true},
		{"0x0000000000000000000000000000000000000000", false},
		{"0x1234", false},
		{"", false},
		{"not-an-address", false},
	}
	for _, tc := range cases {
		if _, ok := ParseAccount(tc.in); ok != tc.ok {
			t.Errorf("ParseAccount(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}
}
