package chatprompt

import (
	"fmt"
	"unicode/utf8"

	"github.com/nikolalohinski/gonja/exec"
)

// TokenCounter counts tokens for the truncate_tokens Jinja2 filter.
type TokenCounter interface {
	Count(text string) (int, error)
}

// TokenCounterFunc adapts a plain function (e.g. a tokenizer's Encode length) to TokenCounter.
type TokenCounterFunc func(text string) (int, error)

// Count calls f.
func (f TokenCounterFunc) Count(text string) (int, error) { return f(text) }

// CharFallbackCounter approximates tokens as ceil(runes / CharsPerToken); CharsPerToken <= 0 means 4.
type CharFallbackCounter struct {
	CharsPerToken int
}

// Count implements TokenCounter.
func (c *CharFallbackCounter) Count(text string) (int, error) {
	per := c.CharsPerToken
	if per <= 0 {
		per = 4
	}
	return (utf8.RuneCountInString(text) + per - 1) / per, nil
}

// templateFilters returns the extra Jinja2 filters: truncate_chars(n) and truncate_tokens(n).
func templateFilters(tc TokenCounter) map[string]exec.FilterFunction {
	if tc == nil {
		tc = &CharFallbackCounter{}
	}
	truncateTokens := makeTruncateTokens(tc)
	return map[string]exec.FilterFunction{
		"truncate_chars": func(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
			if in.IsError() {
				return in
			}
			p := params.ExpectArgs(1)
			if p.IsError() {
				return exec.AsValue(fmt.Errorf("truncate_chars: %s", p.Error()))
			}
			return exec.AsValue(truncateChars(in.String(), p.First().Integer()))
		},
		"truncate_tokens": func(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
			if in.IsError() {
				return in
			}
			p := params.ExpectArgs(1)
			if p.IsError() {
				return exec.AsValue(fmt.Errorf("truncate_tokens: %s", p.Error()))
			}
			out, err := truncateTokens(in.String(), p.First().Integer())
			if err != nil {
				return exec.AsValue(fmt.Errorf("truncate_tokens: %w", err))
			}
			return exec.AsValue(out)
		},
	}
}

// truncateChars truncates text to at most maxChars runes.
func truncateChars(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

// makeTruncateTokens returns a function that keeps the longest rune prefix within maxTokens.
func makeTruncateTokens(tc TokenCounter) func(string, int) (string, error) {
	return func(text string, maxTokens int) (string, error) {
		if maxTokens <= 0 {
			return "", nil
		}
		n, err := tc.Count(text)
		if err != nil {
			return "", err
		}
		if n <= maxTokens {
			return text, nil
		}
		runes := []rune(text)
		lo, hi := 0, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			n, err = tc.Count(string(runes[:mid]))
			if err != nil {
				return "", err
			}
			if n <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return string(runes[:lo]), nil
	}
}
