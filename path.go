package x402

import (
	"fmt"
	"regexp"
	"strings"
)

// regexPatternPrefix marks a path pattern as a regular expression.
const regexPatternPrefix = "regex:"

// PathPattern is a compiled set of path patterns. A request path matches
// the set if it matches any pattern in it.
//
// Three pattern forms are supported:
//
//   - "regex:<expr>" compiles <expr> and tests it anchored at the start of
//     the path only; the pattern decides whether to anchor its end.
//   - A pattern containing "*" or "?" is a filesystem-style glob matched
//     against the whole path. "*" matches any run of characters including
//     "/", "?" matches exactly one character, and "[seq]" / "[!seq]"
//     character classes are honored.
//   - Anything else must equal the path byte for byte.
//
// Matching is case-sensitive and performs no URL decoding or path
// normalization; the host framework is expected to hand in the path it
// routed on.
type PathPattern struct {
	matchers []pathMatcher
}

type pathMatcher struct {
	exact string
	re    *regexp.Regexp
}

// CompilePathPattern compiles one or more path patterns. Invalid regular
// expressions and an empty pattern list are configuration errors and are
// reported here, never at request time.
func CompilePathPattern(patterns ...string) (*PathPattern, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: no path patterns", ErrInvalidConfig)
	}

	compiled := make([]pathMatcher, 0, len(patterns))
	for _, pattern := range patterns {
		switch {
		case strings.HasPrefix(pattern, regexPatternPrefix):
			expr := strings.TrimPrefix(pattern, regexPatternPrefix)
			re, err := regexp.Compile(`\A(?:` + expr + `)`)
			if err != nil {
				return nil, fmt.Errorf("%w: path pattern %q: %v", ErrInvalidConfig, pattern, err)
			}
			compiled = append(compiled, pathMatcher{re: re})
		case strings.ContainsAny(pattern, "*?"):
			re, err := globToRegexp(pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: path pattern %q: %v", ErrInvalidConfig, pattern, err)
			}
			compiled = append(compiled, pathMatcher{re: re})
		default:
			compiled = append(compiled, pathMatcher{exact: pattern})
		}
	}
	return &PathPattern{matchers: compiled}, nil
}

// MustCompilePathPattern is like CompilePathPattern but panics on error.
// Intended for static pattern lists in wiring code.
func MustCompilePathPattern(patterns ...string) *PathPattern {
	p, err := CompilePathPattern(patterns...)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether path matches any of the compiled patterns.
func (p *PathPattern) Match(path string) bool {
	for _, m := range p.matchers {
		if m.re != nil {
			if m.re.MatchString(path) {
				return true
			}
		} else if m.exact == path {
			return true
		}
	}
	return false
}

// Patterns returns the number of patterns in the set.
func (p *PathPattern) Patterns() int {
	return len(p.matchers)
}

// globToRegexp translates a filesystem-style glob into an anchored regular
// expression. Unlike path/filepath.Match, "*" here crosses "/".
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`\A(?s:`)

	runes := []rune(pattern)
	n := len(runes)
	for i := 0; i < n; {
		r := runes[i]
		i++
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			j := i
			if j < n && runes[j] == '!' {
				j++
			}
			if j < n && runes[j] == ']' {
				j++
			}
			for j < n && runes[j] != ']' {
				j++
			}
			if j >= n {
				// Unterminated class: treat "[" as a literal.
				b.WriteString(`\[`)
				continue
			}
			stuff := strings.ReplaceAll(string(runes[i:j]), `\`, `\\`)
			i = j + 1
			if strings.HasPrefix(stuff, "!") {
				stuff = "^" + stuff[1:]
			} else if strings.HasPrefix(stuff, "^") || strings.HasPrefix(stuff, "]") || strings.HasPrefix(stuff, "[") {
				stuff = `\` + stuff
			}
			b.WriteString("[")
			b.WriteString(stuff)
			b.WriteString("]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteString(`)\z`)
	return regexp.Compile(b.String())
}
