// SPDX-License-Identifier: MPL-2.0

package lexer

type tokenKind uint8

const (
	tokNone tokenKind = iota
	tokWord
	tokPunct
	tokValue
)

// keywords after which a "/" starts a regular expression.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type scanner struct {
	src string
	i   int

	depth     int
	templates []int // depth at which each open "${" started

	prev     tokenKind
	prevByte byte
	prevWord string

	imports   []Import
	reexports int
	other     bool
}

func (s *scanner) run() {
	for s.i < len(s.src) {
		c := s.src[s.i]
		switch {
		case isSpace(c):
			s.i++
		case c == '/' && s.peek(1) == '/':
			s.i = skipLineComment(s.src, s.i)
		case c == '/' && s.peek(1) == '*':
			s.i = skipBlockComment(s.src, s.i)
		case c == '"' || c == '\'':
			s.other = true
			_, _, _, next, _ := readString(s.src, s.i)
			s.i = next
			s.prev = tokValue
		case c == '`':
			s.other = true
			s.i++
			s.templateBody()
		case c == '/':
			s.other = true
			if s.regexAllowed() {
				s.i = skipRegex(s.src, s.i)
				s.prev = tokValue
			} else {
				s.punct(c)
			}
		case isIdentChar(c):
			start := s.i
			s.i = scanWord(s.src, s.i)
			s.word(s.src[start:s.i], isDigit(c))
		case c == '{' || c == '(' || c == '[':
			s.other = true
			s.depth++
			s.punct(c)
		case c == '}':
			if n := len(s.templates); n > 0 && s.templates[n-1] == s.depth-1 {
				s.templates = s.templates[:n-1]
				s.depth--
				s.i++
				s.templateBody()
				continue
			}
			s.depth--
			s.punct(c)
		case c == ')' || c == ']':
			s.depth--
			s.punct(c)
		case c == ';':
			s.punct(c)
		default:
			s.other = true
			s.punct(c)
		}
	}
}

func (s *scanner) peek(n int) byte {
	if s.i+n < len(s.src) {
		return s.src[s.i+n]
	}
	return 0
}

func (s *scanner) punct(c byte) {
	s.i++
	s.prev = tokPunct
	s.prevByte = c
}

func (s *scanner) regexAllowed() bool {
	switch s.prev {
	case tokNone:
		return true
	case tokWord:
		return regexKeywords[s.prevWord]
	case tokValue:
		return false
	}
	switch s.prevByte {
	case ')', ']':
		return false
	}
	return true
}

// templateBody scans template text up to the closing backtick or an opening "${".
func (s *scanner) templateBody() {
	for s.i < len(s.src) {
		switch s.src[s.i] {
		case '\\':
			s.i += 2
		case '`':
			s.i++
			s.prev = tokValue
			return
		case '$':
			if s.peek(1) == '{' {
				s.templates = append(s.templates, s.depth)
				s.depth++
				s.i += 2
				s.prev = tokPunct
				s.prevByte = '{'
				return
			}
			s.i++
		default:
			s.i++
		}
	}
}

func (s *scanner) word(w string, number bool) {
	afterDot := s.prev == tokPunct && s.prevByte == '.'
	s.prev = tokWord
	s.prevWord = w
	if number {
		s.prev = tokValue
		s.other = true
		return
	}

	switch {
	case w == "import" && !afterDot:
		s.importStatement()
	case w == "export" && !afterDot && s.depth == 0:
		s.exportStatement()
	default:
		s.other = true
	}
}

func (s *scanner) importStatement() {
	j := skipSpaceAndComments(s.src, s.i)
	if j >= len(s.src) {
		s.other = true
		return
	}

	switch c := s.src[j]; {
	case c == '(':
		s.other = true
		k := skipSpaceAndComments(s.src, j+1)
		if k < len(s.src) && (s.src[k] == '"' || s.src[k] == '\'' || s.src[k] == '`') {
			read := readString
			if s.src[k] == '`' {
				read = readTemplate
			}
			val, start, end, next, ok := read(s.src, k)
			next = skipSpaceAndComments(s.src, next)
			if ok && next < len(s.src) && (s.src[next] == ')' || s.src[next] == ',') {
				s.add(val, KindDynamic, start, end)
			}
		}
	case c == '.':
		s.other = true
	case c == '"' || c == '\'':
		val, start, end, next, ok := readString(s.src, j)
		if !ok {
			s.other = true
			return
		}
		s.add(val, KindSideEffect, start, end)
		s.i = s.finishStatement(next)
	default:
		if s.depth != 0 {
			s.other = true
			return
		}
		s.fromClause(j, KindStatic)
	}
}

func (s *scanner) exportStatement() {
	j := skipSpaceAndComments(s.src, s.i)
	if hasWordAt(s.src, j, "type") {
		k := skipSpaceAndComments(s.src, j+len("type"))
		if k < len(s.src) && (s.src[k] == '{' || s.src[k] == '*') {
			j = k
		}
	}
	if j >= len(s.src) {
		s.other = true
		return
	}

	switch s.src[j] {
	case '*', '{':
		s.fromClause(j, KindReexport)
	default:
		s.other = true
	}
}

// fromClause scans an import or export clause starting at j up to
// `from "specifier"`. Anything else makes the statement a regular one.
func (s *scanner) fromClause(j int, kind Kind) {
	for j < len(s.src) {
		j = skipSpaceAndComments(s.src, j)
		if j >= len(s.src) {
			break
		}
		c := s.src[j]
		switch {
		case c == '{':
			j = skipBalanced(s.src, j)
		case c == ';':
			s.other = true
			s.i = j
			return
		case c == '"' || c == '\'':
			// a string module export name, e.g. `export { "a-b" as c }`
			_, _, _, next, _ := readString(s.src, j)
			j = next
		case isIdentChar(c):
			end := scanWord(s.src, j)
			w := s.src[j:end]
			if w == "import" || w == "export" {
				// the clause ended without a semicolon and no `from`
				s.other = true
				s.i = j
				return
			}
			j = end
			if w != "from" {
				continue
			}
			k := skipSpaceAndComments(s.src, j)
			if k < len(s.src) && (s.src[k] == '"' || s.src[k] == '\'') {
				val, start, stop, next, ok := readString(s.src, k)
				if ok {
					s.add(val, kind, start, stop)
					if kind == KindReexport {
						s.reexports++
					}
					s.i = s.finishStatement(next)
					return
				}
			}
		default:
			// "*", ",", "=" and the like
			if c == '=' || c == '(' {
				s.other = true
				s.i = j
				return
			}
			j++
		}
	}
	s.other = true
	s.i = j
}

// finishStatement skips import attributes and an optional semicolon after the specifier.
func (s *scanner) finishStatement(j int) int {
	k := skipSpaceAndComments(s.src, j)
	for _, kw := range []string{"with", "assert"} {
		if hasWordAt(s.src, k, kw) {
			m := skipSpaceAndComments(s.src, k+len(kw))
			if m < len(s.src) && s.src[m] == '{' {
				k = skipSpaceAndComments(s.src, skipBalanced(s.src, m))
			}
			break
		}
	}
	if k < len(s.src) && s.src[k] == ';' {
		k++
	}
	s.prev = tokPunct
	s.prevByte = ';'
	return k
}

func (s *scanner) add(specifier string, kind Kind, start, end int) {
	s.imports = append(s.imports, Import{Specifier: specifier, Kind: kind, Start: start, End: end})
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || isDigit(c) ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func scanWord(src string, i int) int {
	for i < len(src) && isIdentChar(src[i]) {
		i++
	}
	return i
}

func hasWordAt(src string, i int, w string) bool {
	if i < 0 || i+len(w) > len(src) || src[i:i+len(w)] != w {
		return false
	}
	end := i + len(w)
	return end == len(src) || !isIdentChar(src[end])
}

func skipLineComment(src string, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(src string, i int) int {
	for i += 2; i+1 < len(src); i++ {
		if src[i] == '*' && src[i+1] == '/' {
			return i + 2
		}
	}
	return len(src)
}

func skipSpaceAndComments(src string, i int) int {
	for i < len(src) {
		switch {
		case isSpace(src[i]):
			i++
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '/':
			i = skipLineComment(src, i)
		case src[i] == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i)
		default:
			return i
		}
	}
	return i
}

// readString reads the quoted literal at i. It returns the raw contents, their
// offsets, the index after the closing quote and whether the literal was terminated.
func readString(src string, i int) (val string, start, end, next int, ok bool) {
	quote := src[i]
	start = i + 1
	for j := start; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '\n':
			return "", start, j, j, false
		case quote:
			return src[start:j], start, j, j + 1, true
		}
	}
	return "", start, len(src), len(src), false
}

// readTemplate is readString for a template literal. Only a literal without
// substitutions is ok.
func readTemplate(src string, i int) (val string, start, end, next int, ok bool) {
	start = i + 1
	for j := start; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '$':
			if j+1 < len(src) && src[j+1] == '{' {
				return "", start, j, j, false
			}
		case '`':
			return src[start:j], start, j, j + 1, true
		}
	}
	return "", start, len(src), len(src), false
}

func skipRegex(src string, i int) int {
	inClass := false
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return i
		case '/':
			if !inClass {
				i++
				return scanWord(src, i) // flags
			}
		}
	}
	return i
}

// skipBalanced skips the bracketed group opening at i, honoring nested groups,
// strings and comments. It returns the index after the closing bracket.
func skipBalanced(src string, i int) int {
	depth := 0
	for i < len(src) {
		switch c := src[i]; {
		case c == '{' || c == '(' || c == '[':
			depth++
			i++
		case c == '}' || c == ')' || c == ']':
			depth--
			i++
			if depth == 0 {
				return i
			}
		case c == '"' || c == '\'':
			_, _, _, next, _ := readString(src, i)
			i = next
		case c == '/' && i+1 < len(src) && (src[i+1] == '/' || src[i+1] == '*'):
			i = skipSpaceAndComments(src, i)
		default:
			i++
		}
	}
	return i
}
