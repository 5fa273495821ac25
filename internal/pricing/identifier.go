package pricing

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// Identifier length bounds on the normalised form.
const (
	MinIdentifierLength = 4
	MaxIdentifierLength = 20
)

const (
	dashes     = `\-\x{2010}-\x{2015}\x{2212}\x{FE58}\x{FE63}\x{FF0D}`
	dashCutset = "-\u2010\u2011\u2012\u2013\u2014\u2015\u2212\uFE58\uFE63\uFF0D"
)

var (
	labelledPattern = regexp.MustCompile(`(?i)\b(?:model|sku|part\s*(?:number|no\.?|#)|p/?n|item\s*(?:no\.?|#)|cat(?:alog)?\s*(?:no\.?|#))\s*[:#]?\s*([\p{L}\p{N}][\p{L}\p{N}` + dashes + `]*)`)
	tokenPattern    = regexp.MustCompile(`\p{Lu}{2,5}\x20\p{N}{2,6}\b|[\p{L}\p{N}]+(?:[` + dashes + `][\p{L}\p{N}]+)*`)
	pricePattern    = regexp.MustCompile(`(?i)\p{Sc}\s?\d[\d,]*(?:\.\d+)?|\b(?:usd|eur|gbp)\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)?\s?(?:usd|eur|gbp|dollars?|euros?)\b`)
	unitPattern     = regexp.MustCompile(`^\d+(?:ST|ND|RD|TH|PX|MM|CM|KG|GB|MB|TB|KB|HZ|KHZ|MHZ|GHZ|MP|W|KW|V|MAH|LB|LBS|OZ|IN|FT|P|K|X|AM|PM)$`)
)

// spacedPrefixes are letter groups that never start a spaced identifier
// such as "XR 200".
var spacedPrefixes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true, "AUD": true, "JPY": true,
	"CHF": true, "CNY": true, "INR": true, "NO": true, "QTY": true, "PAGE": true,
	"PG": true, "VOL": true, "REV": true, "VER": true, "SKU": true, "PN": true,
}

// Normalize folds a token into its comparable form.
func Normalize(token string) string {
	folded := norm.NFKC.String(token)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.Is(unicode.Pd, r) || r == '−' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// IsIdentifier reports whether a normalised token qualifies as an identifier.
func IsIdentifier(normalized string) bool {
	n := utf8.RuneCountInString(normalized)
	if n < MinIdentifierLength || n > MaxIdentifierLength {
		return false
	}
	var letter, digit bool
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		default:
			return false
		}
	}
	return letter && digit && !unitPattern.MatchString(normalized)
}

// isLabelledIdentifier accepts pure digit part numbers after an explicit label.
func isLabelledIdentifier(normalized string) bool {
	if IsIdentifier(normalized) {
		return true
	}
	n := utf8.RuneCountInString(normalized)
	if n < MinIdentifierLength || n > MaxIdentifierLength {
		return false
	}
	for _, r := range normalized {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type span struct{ start, end int }

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}

// Extract returns every identifier and price token in text, ordered by
// position. Offsets are rune offsets into text.
func Extract(text string) []domain.IdentifierMatch {
	if text == "" {
		return nil
	}
	offsets := newRuneIndex(text)
	var (
		matches []domain.IdentifierMatch
		taken   []span
	)
	add := func(raw string, start, end int, class domain.PatternClass, normalized string) {
		matches = append(matches, domain.IdentifierMatch{
			Raw:        raw,
			Normalized: normalized,
			Class:      class,
			Confidence: class.Confidence(),
			Start:      offsets.runeAt(start),
			End:        offsets.runeAt(end),
		})
		taken = append(taken, span{start, end})
	}

	for _, loc := range pricePattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		add(raw, loc[0], loc[1], domain.PatternPrice, normalizePrice(raw))
	}

	for _, loc := range labelledPattern.FindAllStringSubmatchIndex(text, -1) {
		s := span{loc[2], loc[3]}
		raw := strings.TrimRight(text[s.start:s.end], dashCutset)
		s.end = s.start + len(raw)
		normalized := Normalize(raw)
		if overlaps(taken, s) || !isLabelledIdentifier(normalized) {
			continue
		}
		add(raw, s.start, s.end, domain.PatternLabelled, normalized)
	}

	for _, loc := range tokenPattern.FindAllStringIndex(text, -1) {
		s := span{loc[0], loc[1]}
		raw := text[s.start:s.end]
		if overlaps(taken, s) {
			continue
		}
		class := domain.PatternAlphanumeric
		if strings.ContainsRune(raw, ' ') {
			prefix, _, _ := strings.Cut(raw, " ")
			if spacedPrefixes[prefix] {
				continue
			}
			class = domain.PatternHyphenated
		} else if strings.ContainsAny(raw, dashCutset) {
			class = domain.PatternHyphenated
		}
		normalized := Normalize(raw)
		if !IsIdentifier(normalized) {
			continue
		}
		add(raw, s.start, s.end, class, normalized)
	}

	slices.SortFunc(matches, func(a, b domain.IdentifierMatch) int {
		return a.Start - b.Start
	})
	return matches
}

// Identifiers returns the distinct normalised identifiers in text, in order
// of first appearance. Price tokens are excluded.
func Identifiers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range Extract(text) {
		if m.Class == domain.PatternPrice || seen[m.Normalized] {
			continue
		}
		seen[m.Normalized] = true
		out = append(out, m.Normalized)
	}
	return out
}

func normalizePrice(raw string) string {
	var b strings.Builder
	for _, r := range norm.NFKC.String(raw) {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// runeIndex converts byte offsets to rune offsets for one string.
type runeIndex struct {
	text string
}

func newRuneIndex(text string) runeIndex {
	return runeIndex{text: text}
}

func (ri runeIndex) runeAt(byteOffset int) int {
	return utf8.RuneCountInString(ri.text[:byteOffset])
}
