package game

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	lengthBonusThreshold1  = 5
	lengthBonusThreshold2  = 7
	lengthBonusMultiplier1 = 2
	lengthBonusMultiplier2 = 3
)

// NormalizeWord trims, composes combining marks and lowercases with
// Turkish rules (I→ı, İ→i), so "IŞIK" becomes "ışık".
func NormalizeWord(word string) string {
	composed := norm.NFC.String(strings.TrimSpace(word))
	// Casers carry state and must not be shared across goroutines.
	return cases.Lower(language.Turkish).String(composed)
}

func splitLetters(word string) []string {
	letters := make([]string, 0, len(word))
	for _, r := range word {
		letters = append(letters, string(r))
	}
	return letters
}

// ScoreWord sums letter values, adds the length bonuses and guarantees at
// least one point per letter. The word must already be normalized.
func ScoreWord(word string) int {
	length := 0
	base := 0
	for _, r := range word {
		base += letterScores[r]
		length++
	}

	bonus := 0
	if length >= lengthBonusThreshold1 {
		bonus = (length - lengthBonusThreshold1 + 1) * lengthBonusMultiplier1
	}
	if length >= lengthBonusThreshold2 {
		bonus += (length - lengthBonusThreshold2 + 1) * lengthBonusMultiplier2
	}
	return max(base+bonus, length)
}

func lettersAvailable(pool, letters []string) bool {
	counts := make(map[string]int, len(pool))
	for _, l := range pool {
		counts[l]++
	}
	for _, l := range letters {
		if counts[l] == 0 {
			return false
		}
		counts[l]--
	}
	return true
}

// removeLetters drops one occurrence per letter and keeps the order of the rest.
func removeLetters(pool, letters []string) []string {
	pending := make(map[string]int, len(letters))
	for _, l := range letters {
		pending[l]++
	}
	out := make([]string, 0, len(pool))
	for _, l := range pool {
		if pending[l] > 0 {
			pending[l]--
			continue
		}
		out = append(out, l)
	}
	return out
}

type WordChecker interface {
	Contains(word string) bool
}

// validateWord runs the submission checks in order and returns the first
// failure. word must be normalized.
func validateWord(word string, minLength int, used map[string]struct{}, pool []string, dict WordChecker) error {
	letters := splitLetters(word)
	if len(letters) < minLength {
		return ErrWordTooShort
	}
	if _, ok := used[word]; ok {
		return ErrWordAlreadyUsed
	}
	if !lettersAvailable(pool, letters) {
		return ErrInsufficientLetters
	}
	if !dict.Contains(word) {
		return ErrInvalidDictionaryWord
	}
	return nil
}
