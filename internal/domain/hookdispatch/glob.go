package hookdispatch

import "regexp"

// MatchGlob compiles a simple shell-glob (`*` any run of characters,
// `?` a single character, `.` literal) and matches it against the
// basename-stripped target, so a pattern like "*.go" matches
// "internal/foo/bar.go".
func MatchGlob(pattern, target string) (bool, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(baseName(target)), nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	out := make([]byte, 0, len(pattern)*2+2)
	out = append(out, '^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			out = append(out, '.', '*')
		case '?':
			out = append(out, '.')
		case '.':
			out = append(out, '\\', '.')
		case '\\', '+', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	out = append(out, '$')
	return regexp.Compile(string(out))
}
