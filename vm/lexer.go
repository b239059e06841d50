package vm

import (
	"strconv"
	"strings"
)

// TokenKind is the type of an operand token.
type TokenKind int

const (
	TOKEN_NUMBER     = TokenKind(0) // number
	TOKEN_STRING     = TokenKind(1) // string
	TOKEN_IDENTIFIER = TokenKind(2) // identifier
	TOKEN_EXPRESSION = TokenKind(3) // expression
)

func (kind TokenKind) String() string {
	switch kind {
	case TOKEN_NUMBER:
		return "number"
	case TOKEN_STRING:
		return "string"
	case TOKEN_IDENTIFIER:
		return "identifier"
	case TOKEN_EXPRESSION:
		return "expression"
	}
	return "token"
}

// Token is a single instruction operand.
type Token struct {
	Kind   TokenKind
	Text   string // Identifier name, string literal body, or expression body.
	Number int64  // Value of a TOKEN_NUMBER.
}

// AsmLine is one parsed line of assembly source.
type AsmLine struct {
	Label    string
	Mnemonic string // Upper case; empty for label-only lines.
	Operands []Token
}

// IsBlank returns true for lines the assembler ignores entirely:
// empty lines and whole-line // comments.
func IsBlank(text string) bool {
	text = strings.TrimSpace(text)
	return len(text) == 0 || strings.HasPrefix(text, "//")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func trimLeft(text string) string {
	return strings.TrimLeft(text, " \t\r\n")
}

// scanIdent splits a leading identifier from text.
func scanIdent(text string) (ident string, rest string) {
	if len(text) == 0 || !isIdentStart(text[0]) {
		return "", text
	}
	n := 1
	for n < len(text) && isIdentChar(text[n]) {
		n++
	}
	return text[:n], text[n:]
}

// ParseLine parses a single non-blank line of assembly.
func ParseLine(text string) (line AsmLine, err error) {
	rest := strings.TrimSpace(text)

	// label:
	ident, after := scanIdent(rest)
	if len(ident) > 0 && strings.HasPrefix(after, ":") {
		line.Label = ident
		rest = trimLeft(after[1:])
	} else if strings.HasPrefix(rest, ":") {
		err = ErrLabelSyntax
		return
	}

	if len(rest) == 0 {
		return
	}

	// Mnemonic, or .directive
	directive := ""
	if rest[0] == '.' {
		directive = "."
		rest = rest[1:]
	}
	ident, rest = scanIdent(rest)
	if len(ident) == 0 {
		if len(directive) > 0 {
			err = ErrParseToken("." + rest)
		} else {
			err = ErrParseToken(rest)
		}
		return
	}
	line.Mnemonic = strings.ToUpper(directive + ident)

	for {
		rest = trimLeft(rest)
		if len(rest) == 0 {
			break
		}

		var token Token
		token, rest, err = scanOperand(rest)
		if err != nil {
			return
		}
		line.Operands = append(line.Operands, token)

		rest = trimLeft(rest)
		if strings.HasPrefix(rest, ",") {
			rest = rest[1:]
		}
	}

	return
}

// scanOperand splits the leading operand token from text.
func scanOperand(text string) (token Token, rest string, err error) {
	c := text[0]
	switch {
	case c == '"':
		end := strings.IndexByte(text[1:], '"')
		if end < 0 {
			err = ErrParseString(text)
			return
		}
		token = Token{Kind: TOKEN_STRING, Text: text[1 : 1+end]}
		rest = text[2+end:]
	case c == '$' && strings.HasPrefix(text, "$("):
		depth := 0
		for n := 1; n < len(text); n++ {
			switch text[n] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				token = Token{Kind: TOKEN_EXPRESSION, Text: text[2:n]}
				rest = text[n+1:]
				return
			}
		}
		err = ErrParseExpression(text[2:])
	case c == '-' || isDigit(c):
		n := 1
		for n < len(text) && !isSpace(text[n]) && text[n] != ',' {
			n++
		}
		word := text[:n]
		digits := word
		if c == '-' {
			digits = word[1:]
		}
		if len(digits) == 0 || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			err = ErrParseNumber(word)
			return
		}
		var value int64
		value, err = strconv.ParseInt(word, 10, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
		token = Token{Kind: TOKEN_NUMBER, Text: word, Number: value}
		rest = text[n:]
	case isIdentStart(c):
		var ident string
		ident, rest = scanIdent(text)
		token = Token{Kind: TOKEN_IDENTIFIER, Text: ident}
	default:
		err = ErrParseToken(text)
	}

	return
}
