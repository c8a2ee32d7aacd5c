package encoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sequenceVerb matches the printf-style index placeholder of an image
// sequence pattern such as img%05d.png.
var sequenceVerb = regexp.MustCompile(`%0?(\d*)d`)

// FrameName returns the file name for the zero-based frame index under
// pattern.
func FrameName(pattern string, index int) string {
	return fmt.Sprintf(pattern, index)
}

// PatternGlob converts a sequence pattern into a glob that matches every
// file it can produce. Patterns without a placeholder are returned as is.
func PatternGlob(pattern string) string {
	return sequenceVerb.ReplaceAllStringFunc(pattern, func(verb string) string {
		m := sequenceVerb.FindStringSubmatch(verb)
		width, err := strconv.Atoi(m[1])
		if err != nil || width <= 0 {
			return "*"
		}
		return strings.Repeat("[0-9]", width)
	})
}

// InputPattern returns the value following the first -i flag in args.
func InputPattern(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}

// OutputName returns the last argument, which ffmpeg treats as the output.
func OutputName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}
