// Package exporttest locates a Hangul TrueType font for tests that render PDFs.
package exporttest

import (
	"os"
	"testing"
)

// FontEnv names the variable that points tests at a Hangul font. It matches the
// service setting.
const FontEnv = "LEARN_EXPORT_FONT_PATH"

var candidates = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansKR-Regular.ttf",
	"/usr/share/fonts/noto/NotoSansKR-Regular.ttf",
	"/usr/share/fonts/truetype/unfonts-core/UnDotum.ttf",
	"/Library/Fonts/NanumGothic.ttf",
	"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
	`C:\Windows\Fonts\malgun.ttf`,
}

// FindHangulFont returns the first readable Hangul font, or "" when none is installed.
func FindHangulFont() string {
	if p := os.Getenv(FontEnv); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// HangulFont returns FindHangulFont or skips the test.
func HangulFont(t testing.TB) string {
	t.Helper()
	p := FindHangulFont()
	if p == "" {
		t.Skipf("no Hangul TrueType font installed; set %s to run", FontEnv)
	}
	return p
}
