package game

import (
	"math/rand/v2"
	"slices"
	"sync"
)

const (
	MinVowelsInPool     = 5
	MinConsonantsInPool = 8

	vowelRatio     = 0.3
	consonantRatio = 0.5
)

// Relative frequency of each letter in Turkish text, in percent.
var letterFrequency = map[string]float64{
	"a": 11.92, "b": 2.85, "c": 0.30, "ç": 2.84, "d": 3.99, "e": 8.91,
	"f": 0.88, "g": 1.25, "ğ": 0.10, "h": 1.00, "ı": 0.99, "i": 7.29,
	"j": 0.11, "k": 5.68, "l": 5.86, "m": 4.53, "n": 7.10, "o": 3.54,
	"ö": 0.73, "p": 0.89, "r": 6.81, "s": 3.30, "ş": 1.41, "t": 3.97,
	"u": 4.35, "ü": 0.60, "v": 1.15, "y": 3.61, "z": 1.50,
}

var letterScores = map[rune]int{
	'a': 1, 'b': 3, 'c': 5, 'ç': 3, 'd': 2, 'e': 1, 'f': 3, 'g': 4,
	'ğ': 5, 'h': 3, 'ı': 1, 'i': 1, 'j': 10, 'k': 2, 'l': 1, 'm': 2,
	'n': 1, 'o': 1, 'ö': 4, 'p': 7, 'r': 1, 's': 1, 'ş': 3, 't': 1,
	'u': 1, 'ü': 4, 'v': 3, 'y': 2, 'z': 7,
}

var vowels = map[string]bool{
	"a": true, "e": true, "ı": true, "i": true,
	"o": true, "ö": true, "u": true, "ü": true,
}

func IsVowel(letter string) bool {
	return vowels[letter]
}

// LetterScore returns the point value of a letter, 0 for anything outside the alphabet.
func LetterScore(r rune) int {
	return letterScores[r]
}

func countVowels(letters []string) (vowelCount, consonantCount int) {
	for _, l := range letters {
		if _, ok := letterFrequency[l]; !ok {
			continue
		}
		if IsVowel(l) {
			vowelCount++
		} else {
			consonantCount++
		}
	}
	return vowelCount, consonantCount
}

type weightedLetters struct {
	letters    []string
	cumulative []float64
}

func newWeightedLetters(keep func(letter string) bool) weightedLetters {
	letters := make([]string, 0, len(letterFrequency))
	for l := range letterFrequency {
		if keep(l) {
			letters = append(letters, l)
		}
	}
	// map order is random; seeded generators must draw the same sequence
	slices.Sort(letters)

	cumulative := make([]float64, len(letters))
	total := 0.0
	for i, l := range letters {
		total += letterFrequency[l]
		cumulative[i] = total
	}
	return weightedLetters{letters: letters, cumulative: cumulative}
}

func (w weightedLetters) draw(rng *rand.Rand) string {
	x := rng.Float64() * w.cumulative[len(w.cumulative)-1]
	i, _ := slices.BinarySearch(w.cumulative, x)
	return w.letters[min(i, len(w.letters)-1)]
}

// LetterGenerator draws letters weighted by their frequency while keeping
// pools playable. It is safe for concurrent use.
type LetterGenerator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	all        weightedLetters
	vowels     weightedLetters
	consonants weightedLetters
}

func NewLetterGenerator(seed uint64) *LetterGenerator {
	return &LetterGenerator{
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		all:        newWeightedLetters(func(string) bool { return true }),
		vowels:     newWeightedLetters(IsVowel),
		consonants: newWeightedLetters(func(l string) bool { return !IsVowel(l) }),
	}
}

func NewRandomLetterGenerator() *LetterGenerator {
	return NewLetterGenerator(rand.Uint64())
}

// Pool returns a shuffled pool of the given size with at least
// max(MinVowelsInPool, 30%) vowels and max(MinConsonantsInPool, 50%)
// consonants, both capped by the size.
func (g *LetterGenerator) Pool(size int) []string {
	if size <= 0 {
		return []string{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	vowelCount := min(size, max(MinVowelsInPool, int(float64(size)*vowelRatio)))
	consonantCount := min(size-vowelCount, max(MinConsonantsInPool, int(float64(size)*consonantRatio)))

	pool := make([]string, 0, size)
	for range vowelCount {
		pool = append(pool, g.vowels.draw(g.rng))
	}
	for range consonantCount {
		pool = append(pool, g.consonants.draw(g.rng))
	}
	for len(pool) < size {
		pool = append(pool, g.all.draw(g.rng))
	}

	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// Replenish returns exactly len(consumed) letters to append to remaining.
// Vowel and consonant deficits against the pool minimums are closed first.
func (g *LetterGenerator) Replenish(consumed, remaining []string) []string {
	n := len(consumed)
	if n == 0 {
		return []string{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	vowelCount, consonantCount := countVowels(remaining)
	needVowels := max(0, MinVowelsInPool-vowelCount)
	needConsonants := max(0, MinConsonantsInPool-consonantCount)

	out := make([]string, 0, n)
	for ; len(out) < n && needVowels > 0; needVowels-- {
		out = append(out, g.vowels.draw(g.rng))
	}
	for ; len(out) < n && needConsonants > 0; needConsonants-- {
		out = append(out, g.consonants.draw(g.rng))
	}
	for len(out) < n {
		out = append(out, g.all.draw(g.rng))
	}

	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
