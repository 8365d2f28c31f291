// Package rules rewrites transcripts with deterministic substitutions read
// from a plain-text rules file, one rule per line:
//
//	# comment
//	pull request => PR
//	s/\bgit\s*hub\b/GitHub/g
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const DefaultIterationLimit = 30

// ErrNotConverged is returned when rules keep rewriting each other's output.
var ErrNotConverged = errors.New("rules did not converge")

// Rule is one compiled substitution.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// Syntax recognizes and compiles one rule notation.
type Syntax interface {
	Match(line string) bool
	Compile(line string) (Rule, error)
}

// Engine applies its rules in file order, repeating full passes until the
// text stops changing.
type Engine struct {
	rules []Rule
	limit int
}

// DefaultSyntaxes lists the built-in notations in matching order.
func DefaultSyntaxes() []Syntax {
	return []Syntax{regexSyntax{}, literalSyntax{}}
}

// Load reads rules from path. An empty path or a missing file yields an
// engine that returns text unchanged.
func Load(path string, limit int, syntaxes ...Syntax) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return New(nil, limit), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil, limit), nil
		}
		return nil, fmt.Errorf("open rules file %q: %w", path, err)
	}
	defer f.Close()

	rules, err := Parse(f, syntaxes...)
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}
	return New(rules, limit), nil
}

// New builds an engine over already compiled rules.
func New(rules []Rule, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultIterationLimit
	}
	return &Engine{rules: rules, limit: limit}
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply rewrites text. If the text is still changing after the iteration
// limit, the partially rewritten text is returned with ErrNotConverged.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	out := text
	for pass := 0; pass < e.limit; pass++ {
		changed := false
		for _, r := range e.rules {
			next, ok := r.Apply(out)
			if ok {
				out = next
				changed = true
			}
		}
		if !changed {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w after %d passes", ErrNotConverged, e.limit)
}

// Parse compiles every non-blank, non-comment line of r. With no syntaxes
// given, DefaultSyntaxes is used.
func Parse(r io.Reader, syntaxes ...Syntax) ([]Rule, error) {
	if len(syntaxes) == 0 {
		syntaxes = DefaultSyntaxes()
	}

	var rules []Rule
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := compileLine(line, syntaxes)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return rules, nil
}

func compileLine(line string, syntaxes []Syntax) (Rule, error) {
	for _, s := range syntaxes {
		if s.Match(line) {
			return s.Compile(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}
