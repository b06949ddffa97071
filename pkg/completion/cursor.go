package completion

import "strings"

// wordSeparators are the characters that end a word, matching the editor's
// default word definition.
const wordSeparators = "`~!@#$%^&*()-=+[{]}\\|;:'\",.<>/? \t"

// Range is a replace range in 1-based editor coordinates. EndColumn is
// exclusive.
type Range struct {
	LineNumber  int `json:"lineNumber"`
	StartColumn int `json:"startColumn"`
	EndColumn   int `json:"endColumn"`
}

// Cursor is the editor state relevant to a completion request.
type Cursor struct {
	// Word is the partial word typed before the cursor.
	Word string `json:"word"`
	// CharBefore and CharAfter are the characters adjacent to the word span,
	// empty at the start or end of the line.
	CharBefore string `json:"charBefore"`
	CharAfter  string `json:"charAfter"`
	Range      Range  `json:"range"`
}

// CursorAt computes the cursor state for a position in a single line of text.
// column is 1-based and points at the character after the cursor.
func CursorAt(line string, lineNumber, column int) Cursor {
	runes := []rune(line)

	end := column - 1
	if end < 0 {
		end = 0
	}

	if end > len(runes) {
		end = len(runes)
	}

	start := end
	for start > 0 && !strings.ContainsRune(wordSeparators, runes[start-1]) {
		start--
	}

	cursor := Cursor{
		Word: string(runes[start:end]),
		Range: Range{
			LineNumber:  lineNumber,
			StartColumn: start + 1,
			EndColumn:   end + 1,
		},
	}

	if start > 0 {
		cursor.CharBefore = string(runes[start-1])
	}

	if end < len(runes) {
		cursor.CharAfter = string(runes[end])
	}

	return cursor
}
