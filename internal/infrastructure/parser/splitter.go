package parser

import (
	"github.com/tmc/langchaingo/textsplitter"
)

var clauseSeparators = []string{"\n\n", "\n", " ", ""}

// NewSplitter returns a recursive character splitter tuned for contract paragraphs.
func NewSplitter(chunkSize, chunkOverlap int) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(clauseSeparators),
	)
}
