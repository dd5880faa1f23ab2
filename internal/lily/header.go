package lily

import (
	"regexp"
	"strings"
)

// EscapeString escapes a string for use inside LilyPond double-quoted strings.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

var (
	headerRe  = regexp.MustCompile(`(?s)(\\header\s*\{)(.*?)(\})`)
	versionRe = regexp.MustCompile(`\\version\s+"[^"]+"\s*`)
)

// EnsureHeader guarantees a \header block with the given title and
// tagline = ##f. An existing header is updated in place; otherwise a new
// block is inserted right after the \version line (or prepended).
func EnsureHeader(src, title string) string {
	titleVal := `"` + EscapeString(title) + `"`

	if m := headerRe.FindStringSubmatchIndex(src); m != nil {
		body := src[m[4]:m[5]]
		body = ensureField(body, "title", titleVal)
		body = ensureField(body, "tagline", "##f")
		return src[:m[4]] + body + src[m[5]:]
	}

	block := "\\header {\n  title = " + titleVal + "\n  tagline = ##f\n}\n\n"
	if vm := versionRe.FindStringIndex(src); vm != nil {
		return src[:vm[1]] + "\n" + block + src[vm[1]:]
	}
	return block + src
}

func ensureField(body, field, value string) string {
	fieldRe := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(field) + `\s*=\s*.*$`)
	line := "  " + field + " = " + value
	if fieldRe.MatchString(body) {
		replaced := false
		return fieldRe.ReplaceAllStringFunc(body, func(s string) string {
			if replaced {
				return s
			}
			replaced = true
			return line
		})
	}
	return "\n" + line + "\n" + strings.TrimLeft(body, "\n")
}
