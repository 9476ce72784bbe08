package extract

import (
	"regexp"
	"strings"
)

type CleanFunc func(string) string

func NewPipe(cleanFuncs ...CleanFunc) CleanFunc {
	return func(str string) string {
		return CleanString(str, cleanFuncs...)
	}
}

func CleanString(str string, cleanFuncs ...CleanFunc) string {
	cleaned := str
	for _, clean := range cleanFuncs {
		cleaned = clean(cleaned)
	}
	return cleaned
}

func RemovePrefix(prefix string) CleanFunc {
	return func(str string) string {
		return strings.TrimPrefix(str, prefix)
	}
}

func OneLine(str string) string {
	return strings.Replace(str, "\n", " ", -1)
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// Collapse turns runs of whitespace into a single space.
func Collapse(str string) string {
	return innerWhitespace.ReplaceAllString(str, " ")
}

// StripHash removes the leading "#" rankings are printed with.
var StripHash = NewPipe(strings.TrimSpace, RemovePrefix("#"), strings.TrimSpace)

// Title flattens a multi-line card title onto one line.
var Title = NewPipe(OneLine, Collapse, strings.TrimSpace)

var firstWord = regexp.MustCompile(`\s*(\w+)`)

// FirstWord keeps the first run of word characters, "" if there is none.
func FirstWord(str string) string {
	m := firstWord.FindStringSubmatch(str)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// SplitList splits a comma separated tooltip into trimmed, non-empty items.
func SplitList(str string) []string {
	var out []string
	for _, item := range strings.Split(str, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
