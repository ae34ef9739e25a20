package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a transcode_cmd override into argv words. Single and
// double quotes group words, backslash escapes the next rune, and a leading
// '#' disables the override entirely.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv   []string
		word   strings.Builder
		quote  rune
		escape bool
	)

	emit := func() {
		if word.Len() > 0 {
			argv = append(argv, word.String())
			word.Reset()
		}
	}

	for _, r := range input {
		switch {
		case escape:
			word.WriteRune(r)
			escape = false
		case r == '\\':
			escape = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			emit()
		default:
			word.WriteRune(r)
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape at end of transcode command %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in transcode command %q", input)
	}

	emit()
	return argv, nil
}

// mustParseArgv is for hardcoded command strings whose validity is a
// programming invariant.
func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
