package book

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fallback_books.yaml
var fallbackYAML []byte

var fallbackBooks = mustParseFallback(fallbackYAML)

func mustParseFallback(data []byte) []Book {
	var books []Book
	if err := yaml.Unmarshal(data, &books); err != nil {
		panic(fmt.Sprintf("book: parse fallback catalog: %v", err))
	}
	return books
}

// Fallback returns a copy of the fixed catalog served during outages.
func Fallback() []Book {
	return append([]Book(nil), fallbackBooks...)
}
