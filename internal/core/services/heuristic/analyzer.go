// Package heuristic grades a submission by inspecting its source text when
// no executable tests are available.
package heuristic

import (
	"fmt"
	"regexp"
	"strings"

	"gitlab.com/codegrader.net/internal/domain"
)

type check struct {
	description string
	pattern     *regexp.Regexp
}

var componentBaselines = []check{
	{"produces renderable markup", regexp.MustCompile(`<[A-Za-z][\w.]*[\s/>]|createElement\s*\(`)},
	{"declares state", regexp.MustCompile(`\buse(State|Reducer)\s*\(|this\.state\b`)},
	{"declares side effects", regexp.MustCompile(`\buse(Layout)?Effect\s*\(|componentDidMount\s*\(`)},
	{"handles user interaction", regexp.MustCompile(`on[A-Z]\w*=`)},
}

const loopPattern = `\b(for|while)\s*\(|\bdo\s*\{|\.(map|reduce|forEach|filter|some|every)\s*\(`

var returnsValue = check{"returns a value", regexp.MustCompile(`\breturn\b[ \t]*[^;\s}]|=>\s*[^{\s]`)}

// Analyzer produces one result per baseline check and per required token
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze checks source for the baselines of the challenge type followed by every
// token. A token wrapped in slashes is a regular expression, anything else
// is a case-sensitive substring.
func (a *Analyzer) Analyze(source string, tokens []string, challenge *domain.Challenge) []domain.TestResult {
	checks := componentBaselines
	if challenge != nil && challenge.IsAlgorithm() {
		checks = algorithmBaselines(challenge.FunctionName)
	}

	results := make([]domain.TestResult, 0, len(checks)+len(tokens))
	for _, c := range checks {
		results = append(results, outcome(c.description, c.pattern.MatchString(source)))
	}
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		ok, err := Matches(source, token)
		if err != nil {
			results = append(results, domain.TestResult{
				Pass:    false,
				Message: fmt.Sprintf("Invalid pattern %s: %v", token, err),
			})
			continue
		}
		results = append(results, outcome("uses "+token, ok))
	}
	return results
}

// algorithmBaselines recognises recursion as a second, called occurrence of
// the function name
func algorithmBaselines(name string) []check {
	if name == "" {
		return []check{
			{"declares a function", regexp.MustCompile(`\bfunction\b|=>`)},
			returnsValue,
			{"uses a loop or recursion", regexp.MustCompile(loopPattern)},
		}
	}
	q := regexp.QuoteMeta(name)
	return []check{
		{
			"declares " + name,
			regexp.MustCompile(`\bfunction\s+` + q + `\b|\b` + q + `\s*[=:]\s*(async\s+)?(function\b|\([^)]*\)\s*=>|\w+\s*=>)`),
		},
		returnsValue,
		{"uses a loop or recursion", regexp.MustCompile(loopPattern + `|(?s)\b` + q + `\b.*\b` + q + `\s*\(`)},
	}
}

// Matches reports whether source contains pattern. "/re/" and "/re/i" are
// regular expressions, everything else is a plain substring.
func Matches(source, pattern string) (bool, error) {
	if re, ok, err := compileSlashed(pattern); ok {
		if err != nil {
			return false, err
		}
		return re.MatchString(source), nil
	}
	return strings.Contains(source, pattern), nil
}

func compileSlashed(pattern string) (*regexp.Regexp, bool, error) {
	if len(pattern) < 2 || pattern[0] != '/' {
		return nil, false, nil
	}
	end := strings.LastIndex(pattern, "/")
	if end == 0 {
		return nil, false, nil
	}
	body, flags := pattern[1:end], pattern[end+1:]
	if strings.Trim(flags, "ims") != "" {
		return nil, false, nil
	}
	if flags != "" {
		body = "(?" + flags + ")" + body
	}
	re, err := regexp.Compile(body)
	return re, true, err
}

func outcome(description string, ok bool) domain.TestResult {
	if ok {
		return domain.TestResult{Pass: true, Message: "Check passed: " + description}
	}
	return domain.TestResult{Pass: false, Message: "Check failed: " + description}
}
