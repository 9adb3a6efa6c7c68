package game

import (
	"bufio"
	"context"
	_ "embed"
	"os"
	"strings"
	"sync"
)

//go:embed words/default.txt
var embeddedWords string

// WordSource supplies a word list from an external store.
type WordSource interface {
	Words(ctx context.Context) ([]string, error)
}

// Dictionary is an immutable set of normalized words.
type Dictionary struct {
	words map[string]struct{}
}

func NewDictionary(words []string) *Dictionary {
	d := &Dictionary{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = NormalizeWord(w)
		if w != "" {
			d.words[w] = struct{}{}
		}
	}
	return d
}

func (d *Dictionary) Contains(word string) bool {
	_, ok := d.words[NormalizeWord(word)]
	return ok
}

func (d *Dictionary) Len() int {
	return len(d.words)
}

// LoadDictionaryFile reads one word per line.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewDictionary(words), nil
}

// LoadDictionaryFrom builds a dictionary from a WordSource.
func LoadDictionaryFrom(ctx context.Context, source WordSource) (*Dictionary, error) {
	words, err := source.Words(ctx)
	if err != nil {
		return nil, err
	}
	return NewDictionary(words), nil
}

var (
	defaultDictOnce sync.Once
	defaultDict     *Dictionary
)

// DefaultDictionary returns the small built-in word list.
func DefaultDictionary() *Dictionary {
	defaultDictOnce.Do(func() {
		defaultDict = NewDictionary(strings.Split(embeddedWords, "\n"))
	})
	return defaultDict
}
