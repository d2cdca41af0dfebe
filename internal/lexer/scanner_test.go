package lexer_test

import (
	"testing"

	"github.com/sqlweave/sqlweave/internal/lexer"
)

func kinds(toks []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func texts(toks []lexer.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestScanKeywordsAreCaseInsensitive(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte("select * from Foo"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	wantKinds := []lexer.Kind{lexer.KindKeyword, lexer.KindSymbol, lexer.KindKeyword, lexer.KindIdentifier, lexer.KindEOF}
	if got := kinds(toks); !equalKinds(got, wantKinds) {
		t.Fatalf("kinds = %v, want %v", got, wantKinds)
	}
	if toks[0].Text != "SELECT" || toks[2].Text != "FROM" {
		t.Fatalf("keyword lexemes not normalized: %q %q", toks[0].Text, toks[2].Text)
	}
}

func TestScanQuotingStyles(t *testing.T) {
	cases := []string{`"weird name"`, `[weird name]`, "`weird name`"}
	for _, src := range cases {
		toks, err := lexer.Scan("t.sql", []byte(src))
		if err != nil {
			t.Fatalf("Scan(%q): %v", src, err)
		}
		if len(toks) != 2 || toks[0].Kind != lexer.KindIdentifier {
			t.Fatalf("Scan(%q) = %v, want single identifier token", src, toks)
		}
		if got := lexer.NormalizeIdentifier(toks[0].Text); got != "weird name" {
			t.Fatalf("NormalizeIdentifier(%q) = %q, want %q", toks[0].Text, got, "weird name")
		}
	}
}

func TestScanDoubledQuoteEscape(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`"a""b"`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := lexer.NormalizeIdentifier(toks[0].Text); got != `a"b` {
		t.Fatalf("NormalizeIdentifier = %q, want %q", got, `a"b`)
	}
}

func TestScanBindParameterStyles(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`? ?12 :name @name $name`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"?", "?12", ":name", "@name", "$name", ""}
	if got := texts(toks); !equalStrings(got, want) {
		t.Fatalf("texts = %v, want %v", got, want)
	}
	for _, tok := range toks[:5] {
		if tok.Kind != lexer.KindParam {
			t.Fatalf("token %q has kind %v, want KindParam", tok.Text, tok.Kind)
		}
	}
}

func TestScanNumericLiterals(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`1 2.5 0x1F 1e10 1.5e-3`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"1", "2.5", "0x1F", "1e10", "1.5e-3", ""}
	if got := texts(toks); !equalStrings(got, want) {
		t.Fatalf("texts = %v, want %v", got, want)
	}
}

func TestScanStringLiteralEscape(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`'it''s'`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if toks[0].Kind != lexer.KindString || toks[0].Text != `'it''s'` {
		t.Fatalf("token = %+v, want raw text 'it''s'", toks[0])
	}
}

func TestScanBlobLiteral(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`x'DEAD' X'BE'`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if toks[0].Kind != lexer.KindBlob || toks[1].Kind != lexer.KindBlob {
		t.Fatalf("tokens = %+v, want two blob literals", toks[:2])
	}
}

func TestScanBlobLiteralOddHexIsError(t *testing.T) {
	_, err := lexer.Scan("t.sql", []byte(`x'ABC'`))
	if err == nil {
		t.Fatal("expected error for odd-length blob literal")
	}
}

func TestScanUnterminatedStringIsError(t *testing.T) {
	_, err := lexer.Scan("t.sql", []byte(`'unterminated`))
	if err == nil {
		t.Fatal("expected error for unterminated string literal")
	}
}

func TestScanMaximalMunchOperators(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte(`<= >= != <> == || -> ->>`))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"<=", ">=", "!=", "<>", "==", "||", "->", "->>", ""}
	if got := texts(toks); !equalStrings(got, want) {
		t.Fatalf("texts = %v, want %v", got, want)
	}
}

func TestScanLineAndBlockComments(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte("SELECT 1 -- trailing\n/* block */ , 2"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{"SELECT", "1", ",", "2", ""}
	if got := texts(toks); !equalStrings(got, want) {
		t.Fatalf("texts = %v, want %v (comments must be skipped)", got, want)
	}
}

func TestScanInvalidUTF8(t *testing.T) {
	_, err := lexer.Scan("t.sql", []byte{0xff, 0xfe})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 input")
	}
}

func TestSpanBetweenOrdersStartEnd(t *testing.T) {
	toks, err := lexer.Scan("t.sql", []byte("SELECT foo"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	span := lexer.SpanBetween(toks[0], toks[1])
	if span.StartLine != 1 || span.StartColumn != 1 {
		t.Fatalf("span start = %d:%d, want 1:1", span.StartLine, span.StartColumn)
	}
	if span.EndColumn <= span.StartColumn {
		t.Fatalf("span end column %d should be past start column %d", span.EndColumn, span.StartColumn)
	}
}

func equalKinds(a, b []lexer.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
