package arbitrage

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Entities are the features extracted from a market question. Every slice
// is sorted and deduplicated.
type Entities struct {
	Names    []string
	Dates    []string
	Numbers  []string
	Keywords []string
	Words    []string
}

var (
	monthRe   = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)\.?(?:\s+(\d{1,2})(?:st|nd|rd|th)?)?\b`)
	yearRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	quarterRe = regexp.MustCompile(`(?i)\bq([1-4])\b`)
	numberRe  = regexp.MustCompile(`\$?\d[\d,]*(?:\.\d+)?\s?(?:[kmb]\b|%|bn\b|million\b|billion\b|thousand\b)?`)
	tokenRe   = regexp.MustCompile(`[A-Za-z][A-Za-z0-9'.&-]*`)
)

// stopWords never count as names or words.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "does": true, "do": true, "for": true, "from": true,
	"has": true, "have": true, "how": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "of": true, "on": true, "or": true,
	"than": true, "that": true, "the": true, "their": true, "this": true,
	"to": true, "was": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "will": true, "with": true, "would": true,
	"before": true, "after": true, "by end": true, "end": true, "any": true,
	"yes": true, "no": true, "not": true,
}

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true, "october": true,
	"november": true, "december": true, "jan": true, "feb": true, "mar": true,
	"apr": true, "jun": true, "jul": true, "aug": true, "sep": true, "sept": true,
	"oct": true, "nov": true, "dec": true,
}

// domainKeywords are the event verbs and venues that carry most of the
// meaning of a prediction-market question.
var domainKeywords = map[string]bool{
	"win": true, "wins": true, "winner": true, "lose": true, "election": true,
	"president": true, "presidency": true, "presidential": true, "nomination": true,
	"nominee": true, "primary": true, "senate": true, "house": true, "governor": true,
	"championship": true, "champion": true, "playoffs": true, "playoff": true,
	"finals": true, "final": true, "series": true, "cup": true, "bowl": true,
	"division": true, "conference": true, "mvp": true, "price": true, "above": true,
	"below": true, "reach": true, "hit": true, "exceed": true, "dip": true,
	"bitcoin": true, "btc": true, "ethereum": true, "eth": true, "solana": true,
	"fed": true, "rate": true, "rates": true, "cut": true, "hike": true,
	"inflation": true, "cpi": true, "gdp": true, "recession": true, "ipo": true,
	"approve": true, "approved": true, "pass": true, "resign": true, "impeach": true,
	"launch": true, "release": true, "ceasefire": true, "war": true, "deal": true,
}

// genericNames are capitalized words that name a league, competition or
// office rather than a participant, so they never count as names.
var genericNames = map[string]bool{
	"nba": true, "nfl": true, "mlb": true, "nhl": true, "mls": true, "wnba": true,
	"ncaa": true, "ufc": true, "fifa": true, "uefa": true, "epl": true, "atp": true,
	"wta": true, "pga": true, "nascar": true, "f1": true, "afc": true, "nfc": true,
	"finals": true, "final": true, "championship": true, "champion": true,
	"playoffs": true, "playoff": true, "cup": true, "bowl": true, "series": true,
	"super": true, "world": true, "league": true, "open": true, "grand": true,
	"prix": true, "mvp": true, "election": true, "primary": true, "senate": true,
	"house": true, "president": true, "presidential": true, "governor": true,
}

// ExtractEntities pulls names, dates, numbers, keywords, and content words
// out of a question.
func ExtractEntities(text string) Entities {
	var e Entities
	lower := strings.ToLower(text)

	dates := map[string]bool{}
	for _, m := range monthRe.FindAllStringSubmatch(text, -1) {
		d := strings.ToLower(m[1][:3])
		if m[2] != "" {
			d += " " + strings.TrimLeft(m[2], "0")
		}
		dates[d] = true
	}
	for _, y := range yearRe.FindAllString(text, -1) {
		dates[y] = true
	}
	for _, q := range quarterRe.FindAllStringSubmatch(text, -1) {
		dates["q"+q[1]] = true
	}
	e.Dates = setToSorted(dates)

	numbers := map[string]bool{}
	for _, raw := range numberRe.FindAllString(monthRe.ReplaceAllString(text, " "), -1) {
		raw = strings.TrimSpace(raw)
		if len(raw) == 4 && yearRe.MatchString(raw) {
			continue
		}
		if n, ok := ParseNumber(raw); ok {
			numbers[strconv.FormatFloat(n, 'f', -1, 64)] = true
		}
	}
	e.Numbers = setToSorted(numbers)

	names := map[string]bool{}
	words := map[string]bool{}
	keywords := map[string]bool{}
	for _, tok := range tokenRe.FindAllString(text, -1) {
		tok = strings.Trim(tok, ".'&-")
		if tok == "" {
			continue
		}
		lw := strings.ToLower(tok)
		if stopWords[lw] {
			continue
		}
		if domainKeywords[lw] {
			keywords[lw] = true
		}
		if len(lw) > 2 && !monthNames[lw] {
			words[lw] = true
		}
		r := []rune(tok)
		if unicode.IsUpper(r[0]) && !monthNames[lw] && !genericNames[lw] {
			names[lw] = true
		}
	}
	// Keywords may also appear as multi-word phrases.
	for _, phrase := range []string{"super bowl", "world series", "stanley cup", "rate cut", "all-time high"} {
		if strings.Contains(lower, phrase) {
			keywords[phrase] = true
		}
	}
	e.Names = setToSorted(names)
	e.Words = setToSorted(words)
	e.Keywords = setToSorted(keywords)
	return e
}

// ParseNumber converts "$100k", "1,000", "2.5%", "3 million" into a float.
func ParseNumber(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	mult := 1.0
	for _, suf := range []struct {
		s string
		m float64
	}{
		{"thousand", 1e3}, {"million", 1e6}, {"billion", 1e9}, {"bn", 1e9},
		{"k", 1e3}, {"m", 1e6}, {"b", 1e9}, {"%", 1},
	} {
		if strings.HasSuffix(s, suf.s) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suf.s))
			mult = suf.m
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n * mult, true
}

// subjectPatterns are tried in order; the first capture is the subject.
var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^will\s+(?:the\s+)?(.+?)\s+(?:win|beat|defeat|lose|reach|hit|be|become|make|get|remain|finish|qualify|advance|announce|sign|say|pass|close|trade)\b`),
	regexp.MustCompile(`(?i)^(?:who|which)\s+.+?\bwill\s+(?:the\s+)?(.+?)\s+(?:win|beat|face)\b`),
	regexp.MustCompile(`(?i)^(?:the\s+)?(.+?)\s+(?:to\s+)?(?:wins?|beats?|defeats?|reach(?:es)?|becomes?|hits?|makes?|loses?)\b`),
}

// interrogatives never start a subject; "Who will win" has no actor.
var interrogatives = map[string]bool{
	"who": true, "which": true, "what": true, "will": true, "how": true, "when": true, "does": true,
}

// ExtractSubject returns the lower-cased actor of the question ("lakers" in
// "Will the Lakers win the NBA Finals?" or "Lakers win the NBA Finals?") or
// "" when no template matches.
func ExtractSubject(question string) string {
	q := strings.TrimSpace(question)
	for _, re := range subjectPatterns {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		s := strings.ToLower(strings.TrimSpace(m[1]))
		s = strings.TrimPrefix(s, "the ")
		if first, _, _ := strings.Cut(s, " "); s == "" || interrogatives[first] {
			continue
		}
		return s
	}
	return ""
}

// subjectWords splits a subject into content words.
func subjectWords(subject string) []string {
	set := map[string]bool{}
	for _, tok := range tokenRe.FindAllString(subject, -1) {
		lw := strings.ToLower(strings.Trim(tok, ".'&-"))
		if lw != "" && !stopWords[lw] {
			set[lw] = true
		}
	}
	return setToSorted(set)
}

// SubjectOverlap is |A∩B| / min(|A|,|B|) over subject words, so "lakers"
// fully overlaps "los angeles lakers".
func SubjectOverlap(a, b string) float64 {
	wa, wb := subjectWords(a), subjectWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := fuzzyIntersect(wa, wb)
	small := len(wa)
	if len(wb) < small {
		small = len(wb)
	}
	return float64(inter) / float64(small)
}

// Jaccard is |A∩B| / |A∪B| with exact matching. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	inter := 0
	for _, y := range b {
		if set[y] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// FuzzyJaccard is Jaccard where near-identical tokens (plurals, typos) count
// as equal.
func FuzzyJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := fuzzyIntersect(a, b)
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// agreeJaccard treats "neither side mentions it" as agreement. Used for
// dates and numbers where absence is not a mismatch.
func agreeJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return Jaccard(a, b)
}

const fuzzyRatio = 0.8

// fuzzyEqual compares tokens by normalised Levenshtein distance. Short
// tokens must match exactly.
func fuzzyEqual(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if la < 5 || lb < 5 {
		return false
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1-float64(d)/float64(maxLen) >= fuzzyRatio
}

// fuzzyIntersect counts one-to-one fuzzy matches between a and b.
func fuzzyIntersect(a, b []string) int {
	used := make([]bool, len(b))
	n := 0
	for _, x := range a {
		for j, y := range b {
			if !used[j] && fuzzyEqual(x, y) {
				used[j] = true
				n++
				break
			}
		}
	}
	return n
}

// shared returns the exact intersection of a and b, sorted.
func shared(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	var out []string
	for _, y := range b {
		if set[y] {
			out = append(out, y)
		}
	}
	sort.Strings(out)
	return out
}

func setToSorted(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
