package tools

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

// ffmpegVersionRegex matches release builds ("version 6.1.1", "version n7.1").
// Git snapshots ("version N-112345-g...") carry no comparable number.
var ffmpegVersionRegex = regexp.MustCompile(`version\s+n?([0-9]+(?:\.[0-9]+){0,2})`)

func normalizeFFmpegVersion(line string) string {
	if m := ffmpegVersionRegex.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return line
}

// meetsMinimum compares dotted versions numerically; missing components count
// as zero. A version without any number never satisfies a minimum.
func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	have := numericParts(version)
	want := numericParts(minimum)
	if len(have) == 0 {
		return false
	}
	for len(have) < len(want) {
		have = append(have, 0)
	}
	for len(want) < len(have) {
		want = append(want, 0)
	}
	return slices.Compare(have, want) >= 0
}

func numericParts(version string) []int {
	fields := strings.FieldsFunc(version, func(r rune) bool { return !unicode.IsDigit(r) })
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		parts = append(parts, n)
	}
	return parts
}
