package catalog

// Category is one of the fixed plugin kinds.
type Category string

const (
	Input     Category = "input"
	Output    Category = "output"
	Filter    Category = "filter"
	Guess     Category = "guess"
	Parser    Category = "parser"
	Decoder   Category = "decoder"
	Formatter Category = "formatter"
	Encoder   Category = "encoder"
	Executor  Category = "executor"
)

// Categories lists every category in display order.
var Categories = []Category{Input, Output, Filter, Guess, Parser, Decoder, Formatter, Encoder, Executor}

var categoryRank = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// Valid reports whether c is one of [Categories].
func (c Category) Valid() bool {
	_, ok := categoryRank[c]
	return ok
}

// ForFiles reports whether plugins of this kind operate on file contents.
func (c Category) ForFiles() bool {
	switch c {
	case Parser, Decoder, Formatter, Encoder:
		return true
	}
	return false
}

// Label returns the heading shown for the category on the page.
func (c Category) Label() string {
	if c.ForFiles() {
		return "file " + string(c)
	}
	return string(c)
}
