package ultrastar

import (
	"fmt"
	"strings"
)

// ValidationError is one problem found while reading a song file. Line is
// 1-based; zero means the problem concerns the song as a whole, such as a
// missing header.
type ValidationError struct {
	Line    int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	where := "song"
	if e.Line > 0 {
		where = fmt.Sprintf("line %d", e.Line)
	}
	if e.Field == "" {
		return where + ": " + e.Message
	}
	return fmt.Sprintf("%s: #%s %s", where, e.Field, e.Message)
}

// ValidationErrors collects every problem of a song file so they can be
// reported at once.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "invalid song"
	case 1:
		return errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d problems: ", len(errs))
	for i, err := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Issues returns a copy of the collected problems.
func (errs ValidationErrors) Issues() []ValidationError {
	return append([]ValidationError(nil), errs...)
}
