package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// regexSyntax handles sed-style "s/pattern/replacement/flags" with any
// non-alphanumeric delimiter. Patterns are case-insensitive unless the
// "I" flag is given; "g" replaces every match instead of the first.
type regexSyntax struct{}

func (regexSyntax) Match(line string) bool {
	return len(line) > 1 && line[0] == 's' && isDelimiter(line[1])
}

func (regexSyntax) Compile(line string) (Rule, error) {
	if len(line) < 2 || !isDelimiter(line[1]) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}
	delim := line[1]

	pattern, rest, err := splitDelimited(line[2:], delim)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	replacement, rest, err := splitDelimited(rest, delim)
	if err != nil {
		return nil, fmt.Errorf("replacement: %w", err)
	}

	ignoreCase := true
	global := false
	var modifiers strings.Builder
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'I':
			ignoreCase = false
		case 'g':
			global = true
		case 'm', 's':
			modifiers.WriteRune(flag)
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	if ignoreCase {
		modifiers.WriteByte('i')
	}
	if modifiers.Len() > 0 {
		pattern = "(?" + modifiers.String() + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		out := r.re.ReplaceAllString(input, r.replacement)
		return out, out != input
	}

	m := r.re.FindStringSubmatchIndex(input)
	if m == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, m)
	out := input[:m[0]] + string(expanded) + input[m[1]:]
	return out, out != input
}

// splitDelimited returns s up to the first unescaped delim and the text
// after it. Escapes are kept for the regexp compiler, except an escaped
// delimiter, which becomes the bare delimiter.
func splitDelimited(s string, delim byte) (string, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			if s[i+1] == delim {
				b.WriteByte(delim)
			} else {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
			}
			i++
		case c == delim:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", errors.New("unterminated expression")
}

func isDelimiter(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == ' ', c == '\t', c == '\\':
		return false
	}
	return true
}
