// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// A lexical scanner for Python.

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// A Token represents a Python lexical token.
type Token int8

const (
	ILLEGAL Token = iota
	EOF

	NEWLINE
	INDENT
	OUTDENT

	// Tokens with values
	IDENT  // x
	INT    // 123
	FLOAT  // 1.23e45
	IMAG   // 1.5j
	STRING // "foo" or 'foo' or '''foo''' or r'foo' or f"{foo}"
	BYTES  // b"foo", etc

	// Punctuation
	PLUS          // +
	MINUS         // -
	STAR          // *
	SLASH         // /
	SLASHSLASH    // //
	PERCENT       // %
	AT            // @
	AMPERSAND     // &
	PIPE          // |
	CIRCUMFLEX    // ^
	LTLT          // <<
	GTGT          // >>
	TILDE         // ~
	DOT           // .
	ELLIPSIS      // ...
	COMMA         // ,
	EQ            // =
	SEMI          // ;
	COLON         // :
	WALRUS        // :=
	ARROW         // ->
	LPAREN        // (
	RPAREN        // )
	LBRACK        // [
	RBRACK        // ]
	LBRACE        // {
	RBRACE        // }
	LT            // <
	GT            // >
	GE            // >=
	LE            // <=
	EQL           // ==
	NEQ           // !=
	PLUS_EQ       // +=    (keep order consistent with PLUS..GTGT)
	MINUS_EQ      // -=
	STAR_EQ       // *=
	SLASH_EQ      // /=
	SLASHSLASH_EQ // //=
	PERCENT_EQ    // %=
	AT_EQ         // @=
	AMPERSAND_EQ  // &=
	PIPE_EQ       // |=
	CIRCUMFLEX_EQ // ^=
	LTLT_EQ       // <<=
	GTGT_EQ       // >>=
	STARSTAR      // **
	STARSTAR_EQ   // **=

	// Keywords
	AND
	AS
	ASSERT
	ASYNC
	AWAIT
	BREAK
	CLASS
	CONTINUE
	DEF
	DEL
	ELIF
	ELSE
	EXCEPT
	FALSE
	FINALLY
	FOR
	FROM
	GLOBAL
	IF
	IMPORT
	IN
	IS
	LAMBDA
	NONE
	NONLOCAL
	NOT
	OR
	PASS
	RAISE
	RETURN
	TRUE
	TRY
	WHILE
	WITH
	YIELD

	// Pseudo-tokens formed by the parser from two keywords.
	NOT_IN // not in
	IS_NOT // is not

	maxToken
)

func (tok Token) String() string { return tokenNames[tok] }

// GoString is like String but quotes punctuation tokens.
// Use Sprintf("%#v", tok) when constructing error messages.
func (tok Token) GoString() string {
	if tok >= PLUS && tok <= STARSTAR_EQ {
		return "'" + tokenNames[tok] + "'"
	}
	return tokenNames[tok]
}

var tokenNames = [...]string{
	ILLEGAL:       "illegal token",
	EOF:           "end of file",
	NEWLINE:       "newline",
	INDENT:        "indent",
	OUTDENT:       "outdent",
	IDENT:         "identifier",
	INT:           "int literal",
	FLOAT:         "float literal",
	IMAG:          "imaginary literal",
	STRING:        "string literal",
	BYTES:         "bytes literal",
	PLUS:          "+",
	MINUS:         "-",
	STAR:          "*",
	SLASH:         "/",
	SLASHSLASH:    "//",
	PERCENT:       "%",
	AT:            "@",
	AMPERSAND:     "&",
	PIPE:          "|",
	CIRCUMFLEX:    "^",
	LTLT:          "<<",
	GTGT:          ">>",
	TILDE:         "~",
	DOT:           ".",
	ELLIPSIS:      "...",
	COMMA:         ",",
	EQ:            "=",
	SEMI:          ";",
	COLON:         ":",
	WALRUS:        ":=",
	ARROW:         "->",
	LPAREN:        "(",
	RPAREN:        ")",
	LBRACK:        "[",
	RBRACK:        "]",
	LBRACE:        "{",
	RBRACE:        "}",
	LT:            "<",
	GT:            ">",
	GE:            ">=",
	LE:            "<=",
	EQL:           "==",
	NEQ:           "!=",
	PLUS_EQ:       "+=",
	MINUS_EQ:      "-=",
	STAR_EQ:       "*=",
	SLASH_EQ:      "/=",
	SLASHSLASH_EQ: "//=",
	PERCENT_EQ:    "%=",
	AT_EQ:         "@=",
	AMPERSAND_EQ:  "&=",
	PIPE_EQ:       "|=",
	CIRCUMFLEX_EQ: "^=",
	LTLT_EQ:       "<<=",
	GTGT_EQ:       ">>=",
	STARSTAR:      "**",
	STARSTAR_EQ:   "**=",
	AND:           "and",
	AS:            "as",
	ASSERT:        "assert",
	ASYNC:         "async",
	AWAIT:         "await",
	BREAK:         "break",
	CLASS:         "class",
	CONTINUE:      "continue",
	DEF:           "def",
	DEL:           "del",
	ELIF:          "elif",
	ELSE:          "else",
	EXCEPT:        "except",
	FALSE:         "False",
	FINALLY:       "finally",
	FOR:           "for",
	FROM:          "from",
	GLOBAL:        "global",
	IF:            "if",
	IMPORT:        "import",
	IN:            "in",
	IS:            "is",
	LAMBDA:        "lambda",
	NONE:          "None",
	NONLOCAL:      "nonlocal",
	NOT:           "not",
	OR:            "or",
	PASS:          "pass",
	RAISE:         "raise",
	RETURN:        "return",
	TRUE:          "True",
	TRY:           "try",
	WHILE:         "while",
	WITH:          "with",
	YIELD:         "yield",
	NOT_IN:        "not in",
	IS_NOT:        "is not",
}

// keywordToken records the special tokens for
// strings that should not be treated as ordinary identifiers.
var keywordToken = map[string]Token{
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"False":    FALSE,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"global":   GLOBAL,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"None":     NONE,
	"nonlocal": NONLOCAL,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"True":     TRUE,
	"try":      TRY,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
}

// A Position describes the location of a rune of input.
type Position struct {
	file *string // filename (indirect for compactness)
	Line int32   // 1-based line number; 0 if line unknown
	Col  int32   // 1-based column (rune) number; 0 if column unknown
}

// IsValid reports whether the position is valid.
func (p Position) IsValid() bool { return p.file != nil }

// Filename returns the name of the file containing this position.
func (p Position) Filename() string {
	if p.file != nil {
		return *p.file
	}
	return "<invalid>"
}

// MakePosition returns position with the specified components.
func MakePosition(file *string, line, col int32) Position { return Position{file, line, col} }

// add returns the position at the end of s, assuming it starts at p.
func (p Position) add(s string) Position {
	if n := strings.Count(s, "\n"); n > 0 {
		p.Line += int32(n)
		s = s[strings.LastIndex(s, "\n")+1:]
		p.Col = 1
	}
	p.Col += int32(utf8.RuneCountInString(s))
	return p
}

func (p Position) String() string {
	file := p.Filename()
	if p.Line > 0 {
		if p.Col > 0 {
			return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Col)
		}
		return fmt.Sprintf("%s:%d", file, p.Line)
	}
	return file
}

func (p Position) isBefore(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

// An Error describes the nature and position of a scanner or parser error.
type Error struct {
	Pos Position
	Msg string
}

func (e Error) Error() string { return e.Pos.String() + ": " + e.Msg }

// A scanner represents a single input file being parsed.
type scanner struct {
	rest      []byte                 // rest of input (in REPL, a line of input)
	token     []byte                 // token being scanned
	pos       Position               // current input position
	depth     int                    // nesting of [ ] { } ( )
	indentstk []int                  // stack of indentation levels
	dents     int                    // number of saved INDENT (>0) or OUTDENT (<0) tokens to return
	lineStart bool                   // after NEWLINE; convert spaces to indentation tokens
	readline  func() ([]byte, error) // function to read a new line of input (REPL only)
}

func newScanner(filename string, src interface{}) (*scanner, error) {
	sc := &scanner{
		pos:       MakePosition(&filename, 1, 1),
		indentstk: make([]int, 1, 10), // []int{0} + spare capacity
		lineStart: true,
	}
	sc.readline, _ = src.(func() ([]byte, error)) // REPL only
	if sc.readline == nil {
		data, err := readSource(filename, src)
		if err != nil {
			return nil, err
		}
		// A leading UTF-8 byte-order mark is not part of the program.
		data = trimBOM(data)
		sc.rest = data
	}
	return sc, nil
}

func readSource(filename string, src interface{}) ([]byte, error) {
	switch src := src.(type) {
	case string:
		return []byte(src), nil
	case []byte:
		return src, nil
	case io.Reader:
		data, err := io.ReadAll(src)
		if err != nil {
			err = &os.PathError{Op: "read", Path: filename, Err: err}
			return nil, err
		}
		return data, nil
	case nil:
		return os.ReadFile(filename)
	default:
		return nil, fmt.Errorf("invalid source: %T", src)
	}
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// An error that occurs during scanning or parsing is
// reported by panicking with an Error.
// recover converts that panic back into an ordinary error.
func (sc *scanner) recover(err *error) {
	// The scanner and parser panic both for routine errors like
	// syntax errors and for programmer bugs like array index
	// errors.  Turn both into error returns.  Catching bug panics
	// is especially important when processing many files.
	switch e := recover().(type) {
	case nil:
		// no panic
	case Error:
		*err = e
	default:
		*err = Error{sc.pos, fmt.Sprintf("internal error: %v", e)}
	}
}

// errorf is called to report an error.
// errorf does not return: it panics.
func (sc *scanner) error(pos Position, s string) {
	panic(Error{pos, s})
}

func (sc *scanner) errorf(pos Position, format string, args ...interface{}) {
	sc.error(pos, fmt.Sprintf(format, args...))
}

// readLine attempts to read another line of input.
// Precondition: len(sc.rest)==0.
func (sc *scanner) readLine() bool {
	if sc.readline != nil {
		line, err := sc.readline()
		if err != nil && err != io.EOF {
			sc.errorf(sc.pos, "%v", err) // EOF or ErrInterrupt
		}
		if len(line) == 0 {
			return false
		}
		// A token in progress spans the line boundary:
		// keep its prefix contiguous with the new line.
		if sc.token != nil {
			prefix := sc.token[:len(sc.token)-len(sc.rest)]
			sc.token = append(append([]byte(nil), prefix...), line...)
			sc.rest = sc.token[len(prefix):]
		} else {
			sc.rest = line
		}
		return true
	}
	return false
}

// eof reports whether the input has reached end of file.
func (sc *scanner) eof() bool {
	return len(sc.rest) == 0 && !sc.readLine()
}

// peekRune returns the next rune in the input without consuming it.
// Newlines in Unix, DOS, or Mac format are treated as one rune, '\n'.
func (sc *scanner) peekRune() rune {
	if sc.eof() {
		return 0
	}

	// fast path: ASCII
	if b := sc.rest[0]; b < utf8.RuneSelf {
		if b == '\r' {
			return '\n'
		}
		return rune(b)
	}

	r, _ := utf8.DecodeRune(sc.rest)
	return r
}

// readRune consumes and returns the next rune in the input.
// Newlines in Unix, DOS, or Mac format are treated as one rune, '\n'.
func (sc *scanner) readRune() rune {
	// eof() has been inlined here, both to avoid a call
	// and to establish len(rest)>0 to avoid a bounds check.
	if len(sc.rest) == 0 {
		if !sc.readLine() {
			sc.error(sc.pos, "internal scanner error: readRune at EOF")
		}
		// Redundant, but eliminates the bounds-check below.
		if len(sc.rest) == 0 {
			return 0
		}
	}

	// fast path: ASCII
	if b := sc.rest[0]; b < utf8.RuneSelf {
		r := rune(b)
		sc.rest = sc.rest[1:]
		if r == '\r' {
			if len(sc.rest) > 0 && sc.rest[0] == '\n' {
				sc.rest = sc.rest[1:]
			}
			r = '\n'
		}
		if r == '\n' {
			sc.pos.Line++
			sc.pos.Col = 1
		} else {
			sc.pos.Col++
		}
		return r
	}

	r, size := utf8.DecodeRune(sc.rest)
	sc.rest = sc.rest[size:]
	sc.pos.Col++
	return r
}

// tokenValue records the position and value associated with each token.
type tokenValue struct {
	raw    string   // raw text of token
	int    int64    // decoded int
	bigInt *big.Int // decoded integers > int64
	float  float64  // decoded float
	string string   // decoded string or bytes
	pos    Position // start position of token

	fstring bool           // token is an f-string
	fields  []fstringField // replacement fields of an f-string, in order
}

// An fstringField is the expression of a replacement field of an
// f-string, with the position of its first rune.
type fstringField struct {
	pos Position
	src string
}

// startToken marks the beginning of the next input token.
// It must be followed by a call to endToken once the token has
// been consumed using readRune.
func (sc *scanner) startToken(val *tokenValue) {
	sc.token = sc.rest
	val.raw = ""
	val.pos = sc.pos
}

// endToken marks the end of an input token.
// It records the actual token string in val.raw if the caller
// has not done that already.
func (sc *scanner) endToken(val *tokenValue) {
	if val.raw == "" {
		val.raw = string(sc.token[:len(sc.token)-len(sc.rest)])
	}
	sc.token = nil
}

// nextToken is called by the parser to obtain the next input token.
// It returns the token value and sets val to the data associated with
// the token.
//
// For all our input tokens, the associated data is val.pos (the
// position where the token begins), val.raw (the input string
// corresponding to the token).  For string and int tokens, the string
// and int fields additionally contain the token's interpreted value.
func (sc *scanner) nextToken(val *tokenValue) Token {

	// The following distribution of tokens guides case ordering:
	//
	//      COMMA          27   %
	//      STRING         23   %
	//      IDENT          15   %
	//      EQL            11   %
	//      LBRACK          5.5 %
	//      RBRACK          5.5 %
	//      NEWLINE         3   %
	//      LPAREN          2.9 %
	//      RPAREN          2.9 %
	//      INT             2   %
	//      others        < 1   %
	//
	// Although NEWLINE tokens are infrequent, and lineStart is
	// usually (~97%) false on entry, skipped newlines account for
	// about 50% of all iterations of the 'start' loop.

start:
	var c rune

	// Deal with leading spaces and indentation.
	blank := false
	savedLineStart := sc.lineStart
	if sc.lineStart {
		sc.lineStart = false
		col := 0
		for {
			c = sc.peekRune()
			if c == ' ' {
				col++
				sc.readRune()
			} else if c == '\t' {
				const tab = 8
				col += tab - col%tab
				sc.readRune()
			} else if c == '\f' {
				// A form feed resets the indentation count.
				col = 0
				sc.readRune()
			} else {
				break
			}
		}

		// The third clause matches EOF.
		if c == '#' || c == '\n' || c == 0 {
			blank = true
		}

		// Compute indentation level for non-blank lines not
		// inside an expression.  This is not the common case.
		if !blank && sc.depth == 0 {
			cur := sc.indentstk[len(sc.indentstk)-1]
			if col > cur {
				// indent
				sc.dents++
				sc.indentstk = append(sc.indentstk, col)
			} else if col < cur {
				// outdent(s)
				for len(sc.indentstk) > 0 && col < sc.indentstk[len(sc.indentstk)-1] {
					sc.dents--
					sc.indentstk = sc.indentstk[:len(sc.indentstk)-1] // pop
				}
				if col != sc.indentstk[len(sc.indentstk)-1] {
					sc.error(sc.pos, "unindent does not match any outer indentation level")
				}
			}
		}
	}

	// Return saved indentation tokens.
	if sc.dents != 0 {
		sc.startToken(val)
		sc.endToken(val)
		if sc.dents < 0 {
			sc.dents++
			return OUTDENT
		} else {
			sc.dents--
			return INDENT
		}
	}

	// start of line proper
	c = sc.peekRune()

	// Skip spaces.
	for c == ' ' || c == '\t' || c == '\f' {
		sc.readRune()
		c = sc.peekRune()
	}

	// comment
	if c == '#' {
		// Consume up to newline (included).
		for c != 0 && c != '\n' {
			sc.readRune()
			c = sc.peekRune()
		}
	}

	// newline
	if c == '\n' {
		sc.lineStart = true

		// Ignore newlines within expressions (common case).
		if sc.depth > 0 {
			sc.readRune()
			goto start
		}

		// Ignore blank lines, except in the REPL,
		// where they emit OUTDENTs and NEWLINE.
		if blank {
			if sc.readline == nil {
				sc.readRune()
				goto start
			} else if len(sc.indentstk) > 1 {
				sc.dents = 1 - len(sc.indentstk)
				sc.indentstk = sc.indentstk[:1]
				goto start
			}
		}

		// At top-level (not in an expression).
		sc.startToken(val)
		sc.readRune()
		val.raw = "\n"
		return NEWLINE
	}

	// end of file
	if c == 0 {
		// Emit OUTDENTs for unfinished indentation,
		// preceded by a NEWLINE if we haven't just emitted one.
		if len(sc.indentstk) > 1 {
			if savedLineStart {
				sc.dents = 1 - len(sc.indentstk)
				sc.indentstk = sc.indentstk[:1]
				goto start
			} else {
				sc.lineStart = true
				sc.startToken(val)
				val.raw = "\n"
				return NEWLINE
			}
		}

		sc.startToken(val)
		sc.endToken(val)
		return EOF
	}

	// line continuation
	if c == '\\' {
		sc.readRune()
		if sc.peekRune() != '\n' {
			sc.errorf(sc.pos, "stray backslash in program")
		}
		sc.readRune()
		goto start
	}

	// start of the next token
	sc.startToken(val)

	// comma (common case)
	if c == ',' {
		sc.readRune()
		sc.endToken(val)
		return COMMA
	}

	// string literal, possibly prefixed
	if c == '"' || c == '\'' {
		return sc.scanString(val, c, "")
	}
	if prefix, quote, ok := sc.stringPrefix(); ok {
		return sc.scanString(val, quote, prefix)
	}

	// identifier or keyword
	if isIdentStart(c) {
		for isIdent(c) {
			sc.readRune()
			c = sc.peekRune()
		}
		sc.endToken(val)
		if k, ok := keywordToken[val.raw]; ok {
			return k
		}
		return IDENT
	}

	// brackets
	switch c {
	case '[', '(', '{':
		sc.depth++
		sc.readRune()
		sc.endToken(val)
		switch c {
		case '[':
			return LBRACK
		case '(':
			return LPAREN
		case '{':
			return LBRACE
		}
		panic("unreachable")

	case ']', ')', '}':
		if sc.depth == 0 {
			sc.errorf(sc.pos, "unmatched '%c'", c)
		} else {
			sc.depth--
		}
		sc.readRune()
		sc.endToken(val)
		switch c {
		case ']':
			return RBRACK
		case ')':
			return RPAREN
		case '}':
			return RBRACE
		}
		panic("unreachable")
	}

	// int or float literal, or period
	if isdigit(c) || c == '.' {
		return sc.scanNumber(val, c)
	}

	// other punctuation
	defer sc.endToken(val)
	switch c {
	case '=', '<', '>', '!', '+', '-', '%', '/', '&', '|', '^', '~', '@', ':': // possibly followed by '='
		start := sc.pos
		sc.readRune()
		switch c {
		case ':':
			if sc.peekRune() == '=' {
				sc.readRune()
				return WALRUS
			}
			return COLON
		case '~':
			return TILDE
		case '-':
			if sc.peekRune() == '>' {
				sc.readRune()
				return ARROW
			}
		}
		if sc.peekRune() == '=' {
			sc.readRune()
			switch c {
			case '<':
				return LE
			case '>':
				return GE
			case '=':
				return EQL
			case '!':
				return NEQ
			case '+':
				return PLUS_EQ
			case '-':
				return MINUS_EQ
			case '/':
				return SLASH_EQ
			case '%':
				return PERCENT_EQ
			case '&':
				return AMPERSAND_EQ
			case '|':
				return PIPE_EQ
			case '^':
				return CIRCUMFLEX_EQ
			case '@':
				return AT_EQ
			}
		}
		switch c {
		case '=':
			return EQ
		case '<':
			if sc.peekRune() == '<' {
				sc.readRune()
				if sc.peekRune() == '=' {
					sc.readRune()
					return LTLT_EQ
				} else {
					return LTLT
				}
			}
			return LT
		case '>':
			if sc.peekRune() == '>' {
				sc.readRune()
				if sc.peekRune() == '=' {
					sc.readRune()
					return GTGT_EQ
				} else {
					return GTGT
				}
			}
			return GT
		case '!':
			sc.error(start, "unexpected input character '!'")
		case '+':
			return PLUS
		case '-':
			return MINUS
		case '/':
			if sc.peekRune() == '/' {
				sc.readRune()
				if sc.peekRune() == '=' {
					sc.readRune()
					return SLASHSLASH_EQ
				} else {
					return SLASHSLASH
				}
			}
			return SLASH
		case '%':
			return PERCENT
		case '&':
			return AMPERSAND
		case '|':
			return PIPE
		case '^':
			return CIRCUMFLEX
		case '@':
			return AT
		}
		panic("unreachable")

	case ';':
		sc.readRune()
		return SEMI

	case '*': // possibly followed by '*' or '='
		sc.readRune()
		switch sc.peekRune() {
		case '*':
			sc.readRune() // consume '*'
			if sc.peekRune() == '=' {
				sc.readRune()
				return STARSTAR_EQ
			}
			return STARSTAR
		case '=':
			sc.readRune() // consume '='
			return STAR_EQ
		}
		return STAR
	}

	sc.errorf(sc.pos, "unexpected input character %#q", c)
	panic("unreachable")
}

// stringPrefix reports whether the input is at a string prefix such
// as r, b, f, rb or Fr immediately followed by a quote. If so, it
// consumes the prefix and returns it (lowercased) with the quote.
func (sc *scanner) stringPrefix() (prefix string, quote rune, ok bool) {
	n := 0
	for n < len(sc.rest) && n < 3 {
		b := sc.rest[n]
		if b == '"' || b == '\'' {
			break
		}
		switch b {
		case 'r', 'R', 'b', 'B', 'f', 'F', 'u', 'U':
			n++
			continue
		}
		return "", 0, false
	}
	if n == 0 || n > 2 || n >= len(sc.rest) {
		return "", 0, false
	}
	if q := sc.rest[n]; q != '"' && q != '\'' {
		return "", 0, false
	}
	prefix = strings.ToLower(string(sc.rest[:n]))
	switch prefix {
	case "r", "b", "f", "u", "rb", "br", "rf", "fr":
	default:
		return "", 0, false
	}
	quote = rune(sc.rest[n])
	for i := 0; i < n; i++ {
		sc.readRune()
	}
	return prefix, quote, true
}

func (sc *scanner) scanString(val *tokenValue, quote rune, prefix string) Token {
	start := val.pos
	triple := len(sc.rest) >= 3 && sc.rest[0] == byte(quote) && sc.rest[1] == byte(quote) && sc.rest[2] == byte(quote)
	sc.readRune()
	val.fstring = strings.Contains(prefix, "f")
	val.fields = nil

	// String literals may contain escaped or unescaped newlines,
	// causing them to span multiple lines (gulps of REPL input);
	// they are the only such token. Thus we cannot call endToken,
	// as it assumes sc.rest is unchanged since startToken.
	// Instead, buffer the token here.
	// TODO(adonovan): opt: buffer only if we encounter a newline.
	raw := new(strings.Builder)

	// Copy the prefix, e.g. r' or " (see startToken).
	raw.WriteString(prefix)
	raw.WriteRune(quote)

	if val.fstring {
		if triple {
			sc.readRune()
			raw.WriteRune(quote)
			sc.readRune()
			raw.WriteRune(quote)
		}
		sc.scanFString(val, start, quote, triple, strings.Contains(prefix, "r"), raw)
	} else if !triple {
		// single-quoted string literal
		for {
			if sc.eof() {
				sc.error(start, "unterminated string literal")
			}
			c := sc.readRune()
			raw.WriteRune(c)
			if c == quote {
				break
			}
			if c == '\n' {
				sc.error(start, "unterminated string literal")
			}
			if c == '\\' {
				if sc.eof() {
					sc.error(start, "unterminated string literal")
				}
				c = sc.readRune()
				raw.WriteRune(c)
			}
		}
	} else {
		// triple-quoted string literal
		sc.readRune()
		raw.WriteRune(quote)
		sc.readRune()
		raw.WriteRune(quote)

		quoteCount := 0
		for {
			if sc.eof() {
				sc.error(start, "unterminated string literal")
			}
			c := sc.readRune()
			raw.WriteRune(c)
			if c == quote {
				quoteCount++
				if quoteCount == 3 {
					break
				}
			} else {
				quoteCount = 0
			}
			if c == '\\' {
				if sc.eof() {
					sc.error(start, "unterminated string literal")
				}
				c = sc.readRune()
				raw.WriteRune(c)
				quoteCount = 0
			}
		}
	}
	val.raw = raw.String()
	sc.token = nil

	s, isByte, err := unquote(val.raw)
	if err != nil {
		sc.error(start, err.Error())
	}
	val.string = s
	if isByte {
		return BYTES
	}
	return STRING
}

// scanFString scans the body of an f-string through its closing
// quotes, recording the expression of each replacement field,
// including those nested within format specifications.
func (sc *scanner) scanFString(val *tokenValue, start Position, quote rune, triple, rawString bool, raw *strings.Builder) {
	for {
		if sc.eof() {
			sc.error(start, "unterminated string literal")
		}
		pos := sc.pos
		c := sc.readRune()
		raw.WriteRune(c)
		switch c {
		case '\\':
			switch sc.peekRune() {
			case '{', '}':
				// \{ does not escape the brace.
			case 'N':
				if rawString {
					break
				}
				// A named escape \N{...} is not a replacement field.
				raw.WriteRune(sc.readRune())
				if sc.peekRune() == '{' {
					for !sc.eof() && sc.peekRune() != '}' && sc.peekRune() != quote {
						raw.WriteRune(sc.readRune())
					}
					if sc.peekRune() == '}' {
						raw.WriteRune(sc.readRune())
					}
				}
			default:
				if sc.eof() {
					sc.error(start, "unterminated string literal")
				}
				raw.WriteRune(sc.readRune())
			}
		case '\n':
			if !triple {
				sc.error(start, "unterminated string literal")
			}
		case '{':
			if sc.peekRune() == '{' {
				raw.WriteRune(sc.readRune())
				break
			}
			sc.scanField(val, start, quote, raw)
		case '}':
			if sc.peekRune() != '}' {
				sc.error(pos, "f-string: single '}' is not allowed")
			}
			raw.WriteRune(sc.readRune())
		case quote:
			if !triple {
				return
			}
			if len(sc.rest) >= 2 && sc.rest[0] == byte(quote) && sc.rest[1] == byte(quote) {
				raw.WriteRune(sc.readRune())
				raw.WriteRune(sc.readRune())
				return
			}
		}
	}
}

// scanField scans a replacement field of an f-string, from just after
// its opening brace through its closing brace:
//
//	{ expression [=] [!conversion] [:format_spec] }
//
// The expression ends at the first ':', '!' or '}' outside brackets
// and nested strings, or at a '=' that is not part of an operator.
func (sc *scanner) scanField(val *tokenValue, start Position, quote rune, raw *strings.Builder) {
	pos := sc.pos
	from := raw.Len()
	depth := 0
	var prev rune // last non-space rune of the expression
expr:
	for {
		if sc.eof() {
			sc.error(start, "unterminated string literal")
		}
		c := sc.peekRune()
		if depth == 0 {
			switch c {
			case '}', ':':
				break expr
			case '!':
				if sc.peekByte(1) != '=' {
					break expr
				}
			case '=':
				if sc.peekByte(1) != '=' && !strings.ContainsRune("=!<>", prev) {
					break expr
				}
			}
		}
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '\'', '"':
			sc.scanNestedString(start, raw)
			prev = c
			continue
		}
		sc.readRune()
		raw.WriteRune(c)
		if c != ' ' && c != '\t' && c != '\n' {
			prev = c
		}
	}
	src := raw.String()[from:]
	if strings.TrimSpace(src) == "" {
		sc.error(pos, "f-string: empty expression not allowed")
	}
	val.fields = append(val.fields, fstringField{pos: pos, src: src})

	if sc.peekRune() == '=' {
		raw.WriteRune(sc.readRune())
		for c := sc.peekRune(); c == ' ' || c == '\t'; c = sc.peekRune() {
			raw.WriteRune(sc.readRune())
		}
	}
	if sc.peekRune() == '!' {
		raw.WriteRune(sc.readRune())
		for isIdent(sc.peekRune()) {
			raw.WriteRune(sc.readRune())
		}
	}
	if sc.peekRune() == ':' {
		raw.WriteRune(sc.readRune())
		sc.scanFormatSpec(val, start, quote, raw)
	}
	if sc.peekRune() != '}' {
		sc.error(sc.pos, "f-string: expecting '}'")
	}
	raw.WriteRune(sc.readRune())
}

// scanFormatSpec scans the format specification of a replacement
// field up to, but not including, the brace that closes the field.
func (sc *scanner) scanFormatSpec(val *tokenValue, start Position, quote rune, raw *strings.Builder) {
	for {
		if sc.eof() {
			sc.error(start, "unterminated string literal")
		}
		switch c := sc.peekRune(); c {
		case '}':
			return
		case quote, '\n':
			sc.error(sc.pos, "f-string: expecting '}'")
		case '{':
			raw.WriteRune(sc.readRune())
			sc.scanField(val, start, quote, raw)
		default:
			raw.WriteRune(sc.readRune())
		}
	}
}

// scanNestedString copies a string literal within a replacement field.
func (sc *scanner) scanNestedString(start Position, raw *strings.Builder) {
	quote := sc.readRune()
	raw.WriteRune(quote)
	triple := len(sc.rest) >= 2 && sc.rest[0] == byte(quote) && sc.rest[1] == byte(quote)
	if triple {
		raw.WriteRune(sc.readRune())
		raw.WriteRune(sc.readRune())
	}
	for {
		if sc.eof() {
			sc.error(start, "unterminated string literal")
		}
		c := sc.readRune()
		raw.WriteRune(c)
		switch c {
		case '\\':
			if !sc.eof() {
				raw.WriteRune(sc.readRune())
			}
		case '\n':
			if !triple {
				sc.error(start, "unterminated string literal")
			}
		case quote:
			if !triple {
				return
			}
			if len(sc.rest) >= 2 && sc.rest[0] == byte(quote) && sc.rest[1] == byte(quote) {
				raw.WriteRune(sc.readRune())
				raw.WriteRune(sc.readRune())
				return
			}
		}
	}
}

// peekByte returns the ith byte of the remaining input, or 0.
func (sc *scanner) peekByte(i int) byte {
	if i < len(sc.rest) {
		return sc.rest[i]
	}
	return 0
}

func (sc *scanner) scanNumber(val *tokenValue, c rune) Token {
	// https://docs.python.org/3/reference/lexical_analysis.html#numeric-literals
	//
	// Python features:
	// - Underscores may separate digits: 1_000_000.
	// - Octal integers require 0o, binary 0b, hex 0x.
	// - A trailing j or J denotes an imaginary literal.
	start := sc.pos
	fraction, exponent := false, false

	if c == '.' {
		// dot or start of fraction
		sc.readRune()
		c = sc.peekRune()
		if !isdigit(c) {
			if c == '.' && len(sc.rest) >= 1 && sc.rest[0] == '.' && len(sc.rest) >= 2 && sc.rest[1] == '.' {
				sc.readRune()
				sc.readRune()
				sc.endToken(val)
				return ELLIPSIS
			}
			sc.endToken(val)
			return DOT
		}
		fraction = true
	} else if c == '0' {
		// hex, octal, binary or float
		sc.readRune()
		c = sc.peekRune()

		if c == 'x' || c == 'X' || c == 'o' || c == 'O' || c == 'b' || c == 'B' {
			base := unicode.ToLower(c)
			sc.readRune()
			c = sc.peekRune()
			for isdigitBase(c, base) || c == '_' {
				sc.readRune()
				c = sc.peekRune()
			}
			sc.endToken(val)
			return sc.intValue(val, start)
		}

		// decimal zero, float, or imaginary
		for isdigit(c) || c == '_' {
			sc.readRune()
			c = sc.peekRune()
		}
		if c == '.' {
			fraction = true
		} else if c == 'e' || c == 'E' {
			exponent = true
		} else if c == 'j' || c == 'J' {
			sc.readRune()
			sc.endToken(val)
			return sc.floatValue(val, start, IMAG)
		}
	} else {
		// decimal
		for isdigit(c) || c == '_' {
			sc.readRune()
			c = sc.peekRune()
		}

		if c == '.' {
			fraction = true
		} else if c == 'e' || c == 'E' {
			exponent = true
		}
	}

	if fraction {
		sc.readRune() // consume '.'
		c = sc.peekRune()
		for isdigit(c) || c == '_' {
			sc.readRune()
			c = sc.peekRune()
		}

		if c == 'e' || c == 'E' {
			exponent = true
		}
	}

	if exponent {
		sc.readRune() // consume [eE]
		c = sc.peekRune()
		if c == '+' || c == '-' {
			sc.readRune()
			c = sc.peekRune()
			if !isdigit(c) {
				sc.error(sc.pos, "invalid float literal")
			}
		}
		for isdigit(c) || c == '_' {
			sc.readRune()
			c = sc.peekRune()
		}
	}

	if c == 'j' || c == 'J' {
		sc.readRune()
		sc.endToken(val)
		return sc.floatValue(val, start, IMAG)
	}

	sc.endToken(val)
	if fraction || exponent {
		return sc.floatValue(val, start, FLOAT)
	}
	return sc.intValue(val, start)
}

func (sc *scanner) intValue(val *tokenValue, start Position) Token {
	s := strings.ReplaceAll(val.raw, "_", "")
	if len(s) > 1 && s[0] == '0' && isdigit(rune(s[1])) {
		// Python 3 forbids leading zeros except in "0", "00", ...
		if strings.Trim(s, "0") != "" {
			sc.error(start, "invalid int literal: leading zeros are not permitted")
		}
		s = "0"
	}
	var err error
	val.int, err = strconv.ParseInt(s, 0, 64)
	if err != nil {
		num := new(big.Int)
		var ok bool
		val.bigInt, ok = num.SetString(s, 0)
		if !ok {
			sc.errorf(start, "invalid int literal %q", val.raw)
		}
	} else {
		val.bigInt = nil
	}
	return INT
}

func (sc *scanner) floatValue(val *tokenValue, start Position, tok Token) Token {
	s := strings.ReplaceAll(val.raw, "_", "")
	s = strings.TrimRight(s, "jJ")
	var err error
	val.float, err = strconv.ParseFloat(s, 64)
	if err != nil && !isRangeErr(err) {
		sc.errorf(start, "invalid %s %q", tok, val.raw)
	}
	return tok
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// isIdent reports whether c is an identifier rune.
func isIdent(c rune) bool {
	return isdigit(c) || isIdentStart(c)
}

func isIdentStart(c rune) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		c == '_' ||
		unicode.IsLetter(c)
}

func isdigit(c rune) bool { return '0' <= c && c <= '9' }

func isdigitBase(c, base rune) bool {
	switch base {
	case 'x':
		return isdigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
	case 'o':
		return '0' <= c && c <= '7'
	case 'b':
		return c == '0' || c == '1'
	}
	return false
}
