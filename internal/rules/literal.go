package rules

import (
	"errors"
	"regexp"
	"strings"
)

// literalSyntax handles "from => to". Matching is case-insensitive.
type literalSyntax struct{}

func (literalSyntax) Match(line string) bool {
	return strings.Contains(line, "=>")
}

func (literalSyntax) Compile(line string) (Rule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid literal rule")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}
	return literalRule{
		pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(from)),
		to:      strings.TrimSpace(to),
	}, nil
}

type literalRule struct {
	pattern *regexp.Regexp
	to      string
}

func (r literalRule) Apply(input string) (string, bool) {
	out := r.pattern.ReplaceAllLiteralString(input, r.to)
	return out, out != input
}
