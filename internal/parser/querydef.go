package parser

import (
	"strings"

	"github.com/sqlweave/sqlweave/internal/ast"
	"github.com/sqlweave/sqlweave/internal/lexer"
)

// parseDefineQuery parses the wrapped query-definition surface:
//
//	DEFINE QUERY name[(input: Ty, output: Ty)] AS <statement>;
func (p *Parser) parseDefineQuery() *ast.QueryDef {
	start := p.advance() // DEFINE
	p.expectKeyword("QUERY")
	name, _, _ := p.expectIdentifier()
	def := &ast.QueryDef{Name: name, Wrapped: true, Doc: p.takePendingDoc()}
	if p.matchSymbol("(") {
		p.advance()
		for !p.matchSymbol(")") && !p.isEOF() {
			label, _, _ := p.expectIdentifier()
			p.expectSymbol(":")
			ty, _, _ := p.expectIdentifier()
			switch strings.ToLower(label) {
			case "input":
				def.InputType = ty
			case "output":
				def.OutputType = ty
			default:
				p.errorf(p.previous(), "unknown query parameter %q, expected input or output", label)
			}
			if !p.matchSymbol(",") {
				break
			}
			p.advance()
		}
		p.expectSymbol(")")
	}
	p.expectKeyword("AS")
	def.Statement = p.parseQueryBody()
	def.Sp = lexer.SpanBetween(start, p.previous())
	return def
}

// parseBlockQueryDef parses the compact block form:
//
//	name: <statement>;
//	name :one: <statement>;
//
// The command tag (:one/:many/:exec/:execresult) is optional; when absent the
// analyzer infers cardinality from the statement shape per the cardinality
// rules. An explicit tag overrides the inferred cardinality; the analyzer
// warns only when `:one` tags a query inferred to return many rows.
func (p *Parser) parseBlockQueryDef() *ast.QueryDef {
	start := p.current()
	name, _, _ := p.expectIdentifier()
	def := &ast.QueryDef{Name: name, Doc: p.takePendingDoc()}
	p.expectSymbol(":")
	if p.current().Kind == lexer.KindIdentifier {
		if cmd, ok := commandTag(p.current().Text); ok {
			p.advance()
			def.Command = cmd
			p.expectSymbol(":")
		}
	}
	def.Statement = p.parseQueryBody()
	def.Sp = lexer.SpanBetween(start, p.previous())
	return def
}

func commandTag(s string) (ast.QueryCommand, bool) {
	switch strings.ToLower(s) {
	case "one":
		return ast.CommandOne, true
	case "many":
		return ast.CommandMany, true
	case "exec":
		return ast.CommandExec, true
	case "execresult":
		return ast.CommandExecResult, true
	default:
		return ast.CommandUnspecified, false
	}
}

// parseQueryBody parses the single DML statement a query definition wraps.
// Like every other statement parser, it leaves a trailing `;` unconsumed for
// the top-level Parse loop to skip on its next iteration.
func (p *Parser) parseQueryBody() ast.Stmt {
	tok := p.current()
	switch {
	case tok.Kind == lexer.KindKeyword && (tok.Text == "SELECT" || tok.Text == "WITH" || tok.Text == "VALUES"):
		return p.parseSelectStmt()
	case tok.Kind == lexer.KindKeyword && tok.Text == "INSERT":
		return p.parseInsert()
	case tok.Kind == lexer.KindKeyword && tok.Text == "UPDATE":
		return p.parseUpdate()
	case tok.Kind == lexer.KindKeyword && tok.Text == "DELETE":
		return p.parseDelete()
	default:
		p.errorf(tok, "expected a SELECT, INSERT, UPDATE, or DELETE statement in query definition, got %q", tok.Text)
		p.sync()
		return nil
	}
}

// takePendingDoc consumes and clears any doc comment the lexer attached
// ahead of the current token, associating it with the definition being
// parsed right now.
func (p *Parser) takePendingDoc() string {
	doc := p.pendingDoc
	p.pendingDoc = ""
	return doc
}
