package query

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPhrase
	tokTerm
	tokLParen
	tokRParen
)

// token is one lexical unit of the query language. Terms carry the field
// name and whatever value shape followed the colon; the parser finishes
// turning them into rules.
type token struct {
	kind tokenKind
	pos  int
	text string // word text or phrase content

	// Term parts.
	field       string
	op          string // raw comparison symbol ("=", "!=", ">", ">=", "<", "<="), "" for none
	value       string
	valueQuoted bool
	valueRegex  bool
	inList      []string
	hasInList   bool
	needsValue  bool // "field:> " style, comparand is the next token
}

// tokenize splits a query string into tokens, keeping quoted strings,
// regex bodies and IN(...) lists atomic.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case c == '"':
			content, next, err := readQuoted(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokPhrase, pos: i, text: content})
			i = next
		default:
			tok, next, err := readWordOrTerm(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		}
	}
	return tokens, nil
}

// readQuoted consumes a double-quoted string starting at input[start].
func readQuoted(input string, start int) (string, int, error) {
	i := start + 1
	var b strings.Builder
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, parseErrorf(start, input[start:], "unterminated quoted string")
}

// readWordOrTerm consumes a bare word, becoming a term when a colon with a
// value shape follows it.
func readWordOrTerm(input string, start int) (token, int, error) {
	i := start
	for i < len(input) && !isDelim(input[i]) && input[i] != ':' {
		i++
	}
	word := input[start:i]
	if i >= len(input) || input[i] != ':' || word == "" {
		return token{kind: tokWord, pos: start, text: word}, i, nil
	}

	// field:...
	tok := token{kind: tokTerm, pos: start, field: word}
	i++ // consume ':'

	// Comparison operator symbol directly after the colon.
	tok.op, i = readOpSymbol(input, i)

	if i >= len(input) || isDelim(input[i]) {
		if tok.op != "" {
			tok.needsValue = true
			return tok, i, nil
		}
		return tok, i, nil // empty value; parser rejects it
	}

	switch {
	case input[i] == '"':
		content, next, err := readQuoted(input, i)
		if err != nil {
			return token{}, 0, err
		}
		tok.value = content
		tok.valueQuoted = true
		return tok, next, nil
	case input[i] == '/':
		body, next, err := readRegex(input, i)
		if err != nil {
			return token{}, 0, err
		}
		tok.value = body
		tok.valueRegex = true
		return tok, next, nil
	case tok.op == "" && hasInPrefix(input[i:]):
		items, next, err := readInList(input, i)
		if err != nil {
			return token{}, 0, err
		}
		tok.inList = items
		tok.hasInList = true
		return tok, next, nil
	default:
		j := i
		for j < len(input) && !isDelim(input[j]) {
			j++
		}
		tok.value = input[i:j]
		return tok, j, nil
	}
}

// readOpSymbol consumes a leading comparison symbol, longest match first.
func readOpSymbol(input string, i int) (string, int) {
	for _, sym := range []string{"!=", ">=", "<=", "=", ">", "<"} {
		if strings.HasPrefix(input[i:], sym) {
			return sym, i + len(sym)
		}
	}
	return "", i
}

// readRegex consumes a /regex/ literal, honoring backslash escapes.
func readRegex(input string, start int) (string, int, error) {
	i := start + 1
	var b strings.Builder
	for i < len(input) {
		c := input[i]
		if c == '\\' && i+1 < len(input) {
			b.WriteByte(c)
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if c == '/' {
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, parseErrorf(start, input[start:], "unterminated regex literal")
}

func hasInPrefix(s string) bool {
	return len(s) >= 3 && (s[0] == 'I' || s[0] == 'i') && (s[1] == 'N' || s[1] == 'n') && s[2] == '('
}

// readInList consumes IN(a, b, c) into trimmed items.
func readInList(input string, start int) ([]string, int, error) {
	i := start + 3 // past "IN("
	end := strings.IndexByte(input[i:], ')')
	if end < 0 {
		return nil, 0, parseErrorf(start, input[start:], "unterminated IN(...) list")
	}
	body := input[i : i+end]
	var items []string
	for _, part := range strings.Split(body, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return nil, 0, parseErrorf(start, input[start:i+end+1], "empty IN(...) list")
	}
	return items, i + end + 1, nil
}

func isDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')'
}
