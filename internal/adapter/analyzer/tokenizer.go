package analyzer

import (
	"unicode"
)

// wordTokenRatio approximates subword tokenization: an average word is about 1.3 tokens.
const wordTokenRatio = 1.3

// Tokenizer estimates LLM token counts for artifact text.
type Tokenizer struct {
	ratio float64
}

// NewTokenizer creates a new Tokenizer using the default word/token ratio.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{ratio: wordTokenRatio}
}

// CountTokens returns an approximate token count for LLM budget estimation.
func (t *Tokenizer) CountTokens(text string) int {
	words := countWords(text)
	if words == 0 {
		return 0
	}
	return int(float64(words) * t.ratio)
}

// countWords counts runs of letters, digits and underscores.
func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if !inWord {
				count++
				inWord = true
			}
		} else {
			inWord = false
		}
	}
	return count
}
