// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package delivery

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Hello world", "Hello world"},
		{"first line only", "Plan the trip\nand book flights", "Plan the trip"},
		{"windows line break", "Plan the trip\r\nand more", "Plan the trip"},
		{"whitespace collapsed", "  What   is\tGo?  ", "What is Go?"},
		{"blank falls back", "   \n\t ", "New chat"},
		{"empty falls back", "", "New chat"},
		{"first line blank falls back", "\nsecond line has text", "New chat"},
		{
			"truncated to 48 runes",
			strings.Repeat("a", 60),
			strings.Repeat("a", 48),
		},
		{
			"rune boundary respected",
			strings.Repeat("ä", 60),
			strings.Repeat("ä", 48),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.in); got != tc.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDeriveTitleExactLimit(t *testing.T) {
	in := strings.Repeat("b", 48)
	if got := DeriveTitle(in); got != in {
		t.Errorf("48-rune title must pass through unchanged, got %q", got)
	}
}
