package config

import (
	"strings"
	"unicode"
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// quote wraps v in double quotes, escaping backslashes, quotes and line
// breaks so that every value fits on one line.
func quote(v string) string {
	return `"` + escaper.Replace(v) + `"`
}

// parse reads KEY=value lines. Blank lines and # comments are skipped, the
// first '=' splits key from value, and later keys override earlier ones.
func parse(content string) map[string]string {
	values := make(map[string]string)
	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		raw = strings.TrimSpace(raw)

		if strings.HasPrefix(raw, `"`) && !closedDoubleQuote(raw) {
			v, next := continuation(raw, lines, i+1)
			values[key] = v
			i = next - 1
			continue
		}
		values[key] = unquote(raw)
	}
	return values
}

// continuation collects an unterminated double-quoted value that spans
// several lines, as older versions of the file were written without
// escaping. It stops at the next known key or header comment and returns
// the index of the first line it did not consume. Lines after the last one
// ending in a double quote are treated as comments. No unescaping is
// applied.
func continuation(first string, lines []string, from int) (string, int) {
	parts := []string{first}
	closed := -1

	i := from
	for ; i < len(lines); i++ {
		if endsValue(lines[i]) {
			break
		}
		line := strings.TrimSuffix(lines[i], "\r")
		parts = append(parts, line)
		if strings.HasSuffix(strings.TrimRightFunc(line, unicode.IsSpace), `"`) {
			closed = len(parts) - 1
		}
	}
	if closed >= 0 {
		parts = parts[:closed+1]
	}

	v := strings.TrimRightFunc(strings.Join(parts, "\n"), unicode.IsSpace)
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	return v, i
}

// endsValue reports whether line starts the next entry of the file: an
// assignment to a known key or one of the header comments the writer emits.
func endsValue(line string) bool {
	t := strings.TrimSpace(line)
	if headerComments[t] {
		return true
	}
	key, _, ok := strings.Cut(t, "=")
	return ok && knownKeys[strings.TrimSpace(key)]
}

var knownKeys, headerComments = func() (map[string]bool, map[string]bool) {
	keys := make(map[string]bool, len(known))
	headers := make(map[string]bool)
	for _, e := range known {
		keys[e.key] = true
		for _, c := range e.comments {
			headers[c] = true
		}
	}
	return keys, headers
}()

// closedDoubleQuote reports whether s, which starts with a double quote,
// also ends with an unescaped one.
func closedDoubleQuote(s string) bool {
	if len(s) < 2 || s[len(s)-1] != '"' {
		return false
	}
	backslashes := 0
	for i := len(s) - 2; i > 0 && s[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes%2 == 0
}

// unquote strips one pair of surrounding quotes. Double-quoted values are
// unescaped; single-quoted and bare values are taken literally.
func unquote(raw string) string {
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		switch {
		case first == '"' && last == '"':
			return unescape(raw[1 : len(raw)-1])
		case first == '\'' && last == '\'':
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}
