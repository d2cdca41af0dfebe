// Package parser implements a recursive-descent parser with Pratt-style
// expression precedence over the token stream internal/lexer produces. It
// builds the internal/ast syntax tree for DDL, DML, and the query-definition
// wrapper forms, recovering from errors by resynchronizing to the next `;`.
package parser

import (
	"fmt"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
)

// Severity mirrors internal/diagnostics' taxonomy without importing it,
// keeping the parser a leaf package with no dependency on diagnostics
// formatting concerns.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Diagnostic is a parse-time error or warning, attached to a precise span.
type Diagnostic struct {
	Span     lexer.Span
	Message  string
	Severity Severity
}

// Parser walks a token stream with a single cursor, shared by every
// sub-parser (DDL, DML, expressions) in the teacher's recursive-descent
// style: no backtracking, a few tokens of lookahead via peekAt.
type Parser struct {
	path        string
	tokens      []lexer.Token
	pos         int
	diagnostics []Diagnostic
	pendingDoc  string
}

// Parse tokenizes nothing itself — it consumes an already-scanned token
// stream — and returns the file's statement list plus any diagnostics.
// A malformed statement does not abort the file: the parser resyncs to the
// next top-level `;` and continues, per spec.md §4.2.
func Parse(path string, tokens []lexer.Token) (*ast.File, []Diagnostic) {
	p := &Parser{path: path, tokens: tokens}
	if len(p.tokens) == 0 || p.tokens[len(p.tokens)-1].Kind != lexer.KindEOF {
		p.tokens = append(p.tokens, lexer.Token{Kind: lexer.KindEOF, File: path})
	}
	file := &ast.File{Path: path}
	for !p.isEOF() {
		if p.matchSymbol(";") {
			p.advance()
			continue
		}
		stmt, ok := p.parseStatement()
		if ok && stmt != nil {
			file.Statements = append(file.Statements, stmt)
		}
		if !p.matchSymbol(";") && !p.isEOF() {
			// The statement parser is responsible for consuming through its
			// own terminator; if it didn't, force a resync so one bad
			// statement can't desynchronize the rest of the file.
			p.sync()
		}
	}
	return file, p.diagnostics
}

func (p *Parser) parseStatement() (ast.Stmt, bool) {
	tok := p.current()
	switch {
	case tok.Kind == lexer.KindKeyword && tok.Text == "CREATE":
		return p.parseCreate()
	case tok.Kind == lexer.KindKeyword && tok.Text == "ALTER":
		return p.parseAlterTable()
	case tok.Kind == lexer.KindKeyword && tok.Text == "DROP":
		return p.parseDrop()
	case tok.Kind == lexer.KindKeyword && tok.Text == "PRAGMA":
		return p.parsePragma()
	case tok.Kind == lexer.KindKeyword && tok.Text == "REINDEX":
		return p.parseReindex()
	case tok.Kind == lexer.KindKeyword && (tok.Text == "SELECT" || tok.Text == "WITH" || tok.Text == "VALUES"):
		sel := p.parseSelectStmt()
		return sel, sel != nil
	case tok.Kind == lexer.KindKeyword && tok.Text == "INSERT":
		stmt := p.parseInsert()
		return stmt, stmt != nil
	case tok.Kind == lexer.KindKeyword && tok.Text == "UPDATE":
		stmt := p.parseUpdate()
		return stmt, stmt != nil
	case tok.Kind == lexer.KindKeyword && tok.Text == "DELETE":
		stmt := p.parseDelete()
		return stmt, stmt != nil
	case tok.Kind == lexer.KindKeyword && tok.Text == "DEFINE":
		stmt := p.parseDefineQuery()
		return stmt, stmt != nil
	case (tok.Kind == lexer.KindIdentifier || tok.Kind == lexer.KindKeyword) && p.peekAt(1).Kind == lexer.KindSymbol && p.peekAt(1).Text == ":":
		stmt := p.parseBlockQueryDef()
		return stmt, stmt != nil
	case tok.Kind == lexer.KindEOF:
		return nil, false
	default:
		p.errorf(tok, "unexpected token %q at top level", tok.Text)
		p.sync()
		return nil, false
	}
}

// sync skips tokens until the next `;` or EOF, the parser's error-recovery
// boundary: one malformed statement never cascades into the next.
func (p *Parser) sync() {
	for !p.isEOF() {
		if p.matchSymbol(";") {
			return
		}
		p.advance()
	}
}

// --- cursor primitives ---

func (p *Parser) current() lexer.Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if tok.Kind != lexer.KindEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) isEOF() bool { return p.current().Kind == lexer.KindEOF }

func (p *Parser) matchKeyword(kw string) bool {
	tok := p.current()
	return tok.Kind == lexer.KindKeyword && tok.Text == kw
}

func (p *Parser) matchSymbol(sym string) bool {
	tok := p.current()
	return tok.Kind == lexer.KindSymbol && tok.Text == sym
}

func (p *Parser) takeKeyword(kw string) (lexer.Token, bool) {
	if p.matchKeyword(kw) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) takeSymbol(sym string) (lexer.Token, bool) {
	if p.matchSymbol(sym) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) expectKeyword(kw string) (lexer.Token, bool) {
	if tok, ok := p.takeKeyword(kw); ok {
		return tok, true
	}
	p.errorf(p.current(), "expected %s, got %q", kw, p.current().Text)
	return lexer.Token{}, false
}

func (p *Parser) expectSymbol(sym string) (lexer.Token, bool) {
	if tok, ok := p.takeSymbol(sym); ok {
		return tok, true
	}
	p.errorf(p.current(), "expected %q, got %q", sym, p.current().Text)
	return lexer.Token{}, false
}

func (p *Parser) expectIdentifier() (string, lexer.Token, bool) {
	tok := p.current()
	if tok.Kind == lexer.KindIdentifier {
		p.advance()
		return lexer.NormalizeIdentifier(tok.Text), tok, true
	}
	if tok.Kind == lexer.KindKeyword {
		// Keywords are frequently reused as identifiers in practice (e.g.
		// column named "key"); accept them here rather than forcing every
		// caller to quote.
		p.advance()
		return tok.Text, tok, true
	}
	p.errorf(tok, "expected identifier, got %q", tok.Text)
	return "", tok, false
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Span:     lexer.NewSpan(tok),
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

func (p *Parser) warnf(tok lexer.Token, format string, args ...any) {
	p.diagnostics = append(p.diagnostics, Diagnostic{
		Span:     lexer.NewSpan(tok),
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

// parseIdent parses a possibly dotted identifier chain (schema.table.column).
func (p *Parser) parseIdent() *ast.Ident {
	first := p.current()
	name, tok, ok := p.expectIdentifier()
	if !ok {
		return &ast.Ident{Sp: lexer.NewSpan(first)}
	}
	parts := []string{tok.Text}
	normalized := []string{name}
	span := lexer.NewSpan(tok)
	for p.matchSymbol(".") {
		p.advance()
		next := p.current()
		n, ntok, ok := p.expectIdentifier()
		if !ok {
			break
		}
		parts = append(parts, ntok.Text)
		normalized = append(normalized, n)
		span = span.Extend(next)
	}
	return &ast.Ident{Parts: parts, NormalizedParts: normalized, Sp: span}
}
