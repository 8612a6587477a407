package nlp

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClampTextKeepsShortInput(t *testing.T) {
	if got := clampText("hello"); got != "hello" {
		t.Fatalf("short input changed: %q", got)
	}
}

func TestClampTextCutsOnRuneBoundary(t *testing.T) {
	// 奇数个前导字节把 40000 字节的截断点推到一个双字节字符中间。
	text := "x" + strings.Repeat("é", 20000)

	got := clampText(text)
	if len(got) > 40000 {
		t.Fatalf("clamped length: %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("clamped text is invalid utf-8, tail=%q", got[len(got)-4:])
	}
	if len(got) != 39999 {
		t.Fatalf("expected cut backed off to rune boundary, len=%d", len(got))
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"skills":[]}`, `{"skills":[]}`},
		{"```json\n{\"skills\":[]}\n```", `{"skills":[]}`},
		{"```\n{}\n```", "{}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
