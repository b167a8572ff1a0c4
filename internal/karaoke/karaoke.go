// Package karaoke pulls per-syllable timings out of subtitle line text.
package karaoke

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Grammar records which tag shape produced a syllable.
type Grammar int

const (
	// GrammarTimed is a lone timing tag followed by prose.
	GrammarTimed Grammar = iota + 1
	// GrammarPause is a timing tag with nothing sung after it.
	GrammarPause
	// GrammarBundled is a timing tag sharing its braces with other override tags.
	GrammarBundled
)

func (g Grammar) String() string {
	switch g {
	case GrammarTimed:
		return "timed"
	case GrammarPause:
		return "pause"
	case GrammarBundled:
		return "bundled"
	default:
		return "unknown"
	}
}

// Syllable is one timed span of a line. An empty Text is a timing gap.
type Syllable struct {
	Centiseconds int
	Text         string
	Grammar      Grammar
}

// IsGap reports whether the syllable only consumes time.
func (s Syllable) IsGap() bool {
	return s.Text == ""
}

// Result holds the syllables of a line in order of appearance.
type Result struct {
	Syllables []Syllable
	Warnings  []string
}

// Text joins the sung text of all syllables.
func (r Result) Text() string {
	var sb strings.Builder
	for _, s := range r.Syllables {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

var (
	// \k, \K, \kf and \ko all mean "this much time is consumed".
	timingTag = regexp.MustCompile(`\\(?:kf|ko|k|K)([0-9.]+)`)
	prose     = regexp.MustCompile(`^[\p{Latin}\s_.\-,!"']+`)
	markup    = regexp.MustCompile(`\{[^}]*\}`)
)

// Strip removes every {...} override block from text.
func Strip(text string) string {
	return markup.ReplaceAllString(text, "")
}

// Extract parses one line of subtitle text. Fragments that match no known
// tag shape are skipped and reported as warnings.
func Extract(text string) Result {
	var res Result
	warned := false
	warn := func() {
		if warned {
			return
		}
		warned = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("unexpected content in line: \"%s\"", Strip(text)))
	}

	rest := text
	if i := strings.IndexByte(rest, '{'); i != 0 {
		lead := rest
		if i > 0 {
			lead = rest[:i]
			rest = rest[i:]
		} else {
			rest = ""
		}
		if strings.TrimSpace(lead) != "" {
			warn()
		}
	}

	for rest != "" {
		// rest always starts with '{' here.
		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			warn()
			break
		}
		body := rest[1:closing]
		rest = rest[closing+1:]

		run := rest
		if next := strings.IndexByte(rest, '{'); next >= 0 {
			run = rest[:next]
			rest = rest[next:]
		} else {
			rest = ""
		}

		tags := timingTag.FindAllStringSubmatchIndex(body, -1)
		if len(tags) == 0 {
			warn()
			continue
		}

		sung := prose.FindString(run)
		if strings.TrimSpace(run[len(sung):]) != "" {
			warn()
		}

		bundled := len(tags) > 1 || strings.TrimSpace(body) != body[tags[0][0]:tags[0][1]]
		for i, loc := range tags {
			cs, ok := parseCentiseconds(body[loc[2]:loc[3]])
			if !ok {
				warn()
				continue
			}
			syl := Syllable{Centiseconds: cs}
			last := i == len(tags)-1
			switch {
			case !last:
				syl.Grammar = GrammarPause
			case bundled:
				syl.Text = sung
				syl.Grammar = GrammarBundled
			case sung != "":
				syl.Text = sung
				syl.Grammar = GrammarTimed
			default:
				syl.Grammar = GrammarPause
			}
			res.Syllables = append(res.Syllables, syl)
		}
	}
	return res
}

func parseCentiseconds(raw string) (int, bool) {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return int(math.Round(v)), true
}
