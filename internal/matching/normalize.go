package matching

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Role says which field a string came from. Title and artist strings are cleaned differently.
type Role int

const (
	RoleTitle Role = iota
	RoleArtist
)

func (r Role) String() string {
	if r == RoleArtist {
		return "artist"
	}
	return "title"
}

var (
	parenSpan     = regexp.MustCompile(`\([^()]*\)`)
	bracketSpan   = regexp.MustCompile(`\[[^\[\]]*\]`)
	artistDivider = regexp.MustCompile(`[,&;]|\s+and\s+`)
	whitespace    = regexp.MustCompile(`\s+`)

	punctuation = strings.NewReplacer(
		"‘", "'", "’", "'", "‛", "'", "′", "'", "`", "'", "´", "'",
		"“", `"`, "”", `"`, "„", `"`, "″", `"`,
		"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
		"…", "...", "×", "x",
	)

	patterns sync.Map // string -> *regexp.Regexp
)

// Normalize cleans raw into its comparison form.
//
// The pipeline is re-applied until the output stops changing, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string, role Role, s Settings) string {
	out := normalizePass(raw, role, s)
	for {
		next := normalizePass(out, role, s)
		if next == out || len(next) > len(out) {
			return out
		}
		out = next
	}
}

func normalizePass(raw string, role Role, s Settings) string {
	out := strings.TrimSpace(fold(raw))

	if role == RoleTitle {
		if s.StripParentheses {
			out = removeSpans(out, parenSpan)
		}
		if s.StripBrackets {
			out = removeSpans(out, bracketSpan)
		}
		if s.IgnoreVersionInfo {
			for _, p := range s.VersionSuffixPatterns {
				out = stripVersionSuffix(out, fold(p))
			}
		}
		if s.IgnoreRemixInfo {
			for _, p := range RemixKeywords(s) {
				out = stripRemix(out, fold(p))
			}
		}
	}

	for _, p := range s.CustomStripPatterns {
		out = removeSubstring(out, fold(p))
	}

	if role == RoleArtist {
		if s.IgnoreFeaturedArtists {
			out = truncateFeatured(out, s.FeaturedArtistPatterns)
		}
		if s.UseFirstArtistOnly {
			if loc := artistDivider.FindStringIndex(out); loc != nil {
				out = out[:loc[0]]
			}
		}
	}

	out = stripPunctuation(out)
	return strings.TrimSpace(whitespace.ReplaceAllString(out, " "))
}

// fold lower-cases s with Unicode case folding, removes combining marks and canonicalises quote and dash variants.
func fold(s string) string {
	s = punctuation.Replace(s)
	s = cases.Fold().String(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return s
}

func removeSpans(s string, re *regexp.Regexp) string {
	for {
		next := re.ReplaceAllString(s, " ")
		if next == s {
			return s
		}
		s = next
	}
}

func removeSubstring(s, sub string) string {
	if sub == "" {
		return s
	}
	for strings.Contains(s, sub) {
		s = strings.ReplaceAll(s, sub, "")
	}
	return s
}

func stripVersionSuffix(s, p string) string {
	if p == "" {
		return s
	}
	q := regexp.QuoteMeta(p)
	s = compiled(`\s+-\s+` + q + `(?:[^\pL\pN][^()\[\]]*)?$`).ReplaceAllString(s, "")
	return compiled(`\s*\(\s*` + q + `(?:[^\pL\pN)][^()]*)?\)\s*$`).ReplaceAllString(s, "")
}

func stripRemix(s, p string) string {
	if p == "" {
		return s
	}
	q := regexp.QuoteMeta(p)
	s = compiled(`\([^()]*\b` + q + `\b[^()]*\)`).ReplaceAllString(s, " ")
	s = compiled(`\[[^\[\]]*\b` + q + `\b[^\[\]]*\]`).ReplaceAllString(s, " ")
	s = compiled(`\s+-\s+[^-]*\b` + q + `\b.*$`).ReplaceAllString(s, "")
	return compiled(`\b` + q + `\b`).ReplaceAllString(s, " ")
}

// truncateFeatured cuts s at the earliest featured-artist marker that stands as a whole word.
func truncateFeatured(s string, featured []string) string {
	cut := -1
	for _, p := range featured {
		p = fold(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		loc := compiled(wordPattern(p)).FindStringSubmatchIndex(s)
		if loc == nil {
			continue
		}
		if cut < 0 || loc[2] < cut {
			cut = loc[2]
		}
	}
	if cut < 0 {
		return s
	}
	return s[:cut]
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// wordPattern matches p when it is not glued to a neighbouring letter or digit. The first group spans p itself.
func wordPattern(p string) string {
	return `(?:^|[^\pL\pN])(` + regexp.QuoteMeta(p) + `)(?:$|[^\pL\pN])`
}

// containsWord reports whether folded text contains keyword as a whole word.
func containsWord(text, keyword string) bool {
	keyword = fold(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	return compiled(wordPattern(keyword)).MatchString(text)
}

func compiled(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	actual, _ := patterns.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp)
}
