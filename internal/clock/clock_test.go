/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"10:30", "10:30", true},
		{"9:05", "09:05", true},
		{" 18:00 ", "18:00", true},
		{"23:59:59", "23:59", true},
		{"00:00", "00:00", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"12:5", "", false},
		{"noon", "", false},
		{"", "", false},
		{"12", "", false},
		{"-1:30", "", false},
		{"12:30:99", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Fatalf("Parse(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	start := New(10, 30)
	if got := start.Add(20).String(); got != "10:50" {
		t.Fatalf("Add(20) = %s, want 10:50", got)
	}
	if got := start.Add(0).String(); got != "10:30" {
		t.Fatalf("Add(0) = %s, want 10:30", got)
	}
	if got := New(23, 50).Add(30).String(); got != "00:20" {
		t.Fatalf("midnight wrap = %s, want 00:20", got)
	}
	if got := New(0, 10).Add(-20).String(); got != "23:50" {
		t.Fatalf("negative wrap = %s, want 23:50", got)
	}
	if got := New(12, 0).Add(3 * MinutesPerDay).String(); got != "12:00" {
		t.Fatalf("multi-day wrap = %s, want 12:00", got)
	}
}

func TestRange(t *testing.T) {
	if got := Range(New(12, 0), New(12, 30)); got != "12:00 - 12:30" {
		t.Fatalf("Range = %q, want %q", got, "12:00 - 12:30")
	}
}
