package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLengthDefault drops single-character tokens.
const MinTokenLengthDefault = 2

// TokenizerConfig controls text tokenization.
type TokenizerConfig struct {
	MinTokenLength          int      `yaml:"min_token_length"`
	StopWords               []string `yaml:"stop_words,omitempty"`
	DisableDefaultStopWords bool     `yaml:"disable_default_stop_words"`
}

// DefaultTokenizerConfig returns the built-in tokenization rules.
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{MinTokenLength: MinTokenLengthDefault}
}

// Tokenizer splits text into index terms. Rules, in order: NFKD
// normalization with combining marks removed, lowercasing, splitting on
// anything that is not a letter or digit, dropping short tokens, and
// dropping stop words. There is no stemming.
type Tokenizer struct {
	minLen int
	stop   map[string]struct{}
}

func NewTokenizer(cfg TokenizerConfig) *Tokenizer {
	t := &Tokenizer{
		minLen: cfg.MinTokenLength,
		stop:   make(map[string]struct{}),
	}
	if t.minLen < 1 {
		t.minLen = 1
	}
	if !cfg.DisableDefaultStopWords {
		for _, w := range englishStopWords {
			t.stop[w] = struct{}{}
		}
	}
	for _, w := range cfg.StopWords {
		if w = strings.ToLower(strings.TrimSpace(fold(w))); w != "" {
			t.stop[w] = struct{}{}
		}
	}
	return t
}

// Tokenize returns the terms of s in order of appearance, duplicates kept.
func (t *Tokenizer) Tokenize(s string) []string {
	s = strings.ToLower(fold(s))

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < t.minLen {
			continue
		}
		if _, ok := t.stop[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// fold decomposes s and strips combining marks, so "Café" becomes "Cafe".
func fold(s string) string {
	tr := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	r, _, err := transform.String(tr, s)
	if err != nil {
		return s
	}
	return r
}

var englishStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "almost",
	"alone", "along", "already", "also", "although", "always", "am", "among",
	"an", "and", "another", "any", "anyhow", "anyone", "anything", "anyway",
	"anywhere", "are", "around", "as", "at", "be", "became", "because",
	"become", "becomes", "been", "before", "behind", "being", "below",
	"beside", "besides", "between", "beyond", "both", "but", "by", "can",
	"cannot", "could", "did", "do", "does", "doing", "done", "down", "due",
	"during", "each", "either", "else", "elsewhere", "enough", "etc", "even",
	"ever", "every", "everyone", "everything", "everywhere", "except", "few",
	"for", "from", "further", "had", "has", "have", "having", "he", "hence",
	"her", "here", "hers", "herself", "him", "himself", "his", "how",
	"however", "i", "ie", "if", "in", "indeed", "into", "is", "it", "its",
	"itself", "just", "least", "less", "many", "may", "me", "meanwhile",
	"might", "mine", "more", "moreover", "most", "mostly", "much", "must",
	"my", "myself", "namely", "neither", "never", "nevertheless", "next",
	"no", "nobody", "none", "nor", "not", "nothing", "now", "nowhere", "of",
	"off", "often", "on", "once", "one", "only", "onto", "or", "other",
	"others", "otherwise", "our", "ours", "ourselves", "out", "over", "own",
	"per", "perhaps", "please", "rather", "re", "same", "seem", "seemed",
	"seeming", "seems", "several", "she", "should", "since", "so", "some",
	"somehow", "someone", "something", "sometime", "sometimes", "somewhere",
	"still", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "thence", "there", "thereafter", "thereby",
	"therefore", "therein", "these", "they", "this", "those", "though",
	"through", "throughout", "thru", "thus", "to", "together", "too",
	"toward", "towards", "under", "until", "up", "upon", "us", "very", "via",
	"was", "we", "well", "were", "what", "whatever", "when", "whence",
	"whenever", "where", "whereas", "whereby", "wherein", "whether", "which",
	"while", "who", "whoever", "whole", "whom", "whose", "why", "will",
	"with", "within", "without", "would", "yet", "you", "your", "yours",
	"yourself", "yourselves",
}
