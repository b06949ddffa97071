package completion

const defaultQuote = `"`

func delimiter(char string) string {
	switch char {
	case `"`, `'`, ".":
		return char
	default:
		return ""
	}
}

func quote(char string) string {
	if char == `"` || char == `'` {
		return char
	}

	return ""
}

// Quotes returns the characters to insert before and after a label given the
// characters adjacent to the word span. A dot before the word means attribute
// access and suppresses quoting entirely. Otherwise the quote already present
// on one side is mirrored on the other, and a trailing quote is only added if
// it differs from the one already there.
func Quotes(charBefore, charAfter string) (leading, trailing string) {
	before := delimiter(charBefore)
	after := delimiter(charAfter)

	if before == "." {
		return "", ""
	}

	effective := before
	if effective == "" {
		effective = quote(after)
	}

	if effective == "" {
		effective = defaultQuote
	}

	if before == "" {
		leading = effective
	}

	if after != effective {
		trailing = effective
	}

	return leading, trailing
}
