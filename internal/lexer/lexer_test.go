package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kozi/internal/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []*ScanError) {
	t.Helper()
	l := New(src)
	var toks []token.Token
	var errs []*ScanError
	for {
		tok, err := l.NextToken()
		if err != nil {
			errs = append(errs, err)
			if len(errs) > 100 {
				require.Fail(t, "scanner did not make forward progress")
			}
			continue
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, errs
}

func TestNextToken_Punctuation(t *testing.T) {
	toks, errs := scanAll(t, "(){},.-+;*/")
	assert.Empty(t, errs)

	want := []token.Kind{
		token.LeftParen, token.RightParen, token.LeftBrace, token.RightBrace,
		token.Comma, token.Dot, token.Minus, token.Plus, token.Semicolon,
		token.Star, token.Slash, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestNextToken_CompoundAssignment(t *testing.T) {
	cases := map[string]token.Kind{
		"+=": token.PlusEqual,
		"-=": token.MinusEqual,
		"*=": token.StarEqual,
		"/=": token.SlashEqual,
		"==": token.EqualEqual,
		"!=": token.BangEqual,
		"<=": token.LessEqual,
		">=": token.GreaterEqual,
	}
	for src, want := range cases {
		toks, errs := scanAll(t, src)
		assert.Empty(t, errs, src)
		require.Len(t, toks, 2, src)
		assert.Equal(t, want, toks[0].Kind, src)
	}
}

func TestNextToken_KeywordsAndIdentifiers(t *testing.T) {
	toks, errs := scanAll(t, "let print x_1 and or while for")
	assert.Empty(t, errs)

	want := []token.Kind{token.Let, token.Print, token.Identifier, token.And, token.Or, token.While, token.For, token.EOF}
	require.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, "x_1", toks[2].Lexeme)
}

func TestNextToken_UnicodeIdentifiers(t *testing.T) {
	for _, src := range []string{"café", "Ελλάδα", "переменная", "変数"} {
		toks, errs := scanAll(t, src)
		assert.Empty(t, errs, src)
		require.Len(t, toks, 2, src)
		assert.Equal(t, token.Identifier, toks[0].Kind, src)
		assert.Equal(t, src, toks[0].Lexeme, src)
	}
}

func TestNextToken_Number(t *testing.T) {
	toks, errs := scanAll(t, "123 3.14 0.5")
	assert.Empty(t, errs)
	require.Len(t, toks, 4)
	for i, want := range []string{"123", "3.14", "0.5"} {
		assert.Equal(t, token.Number, toks[i].Kind)
		assert.Equal(t, want, toks[i].Lexeme)
	}
}

func TestNextToken_DanglingDotIsInvalidNumber(t *testing.T) {
	_, errs := scanAll(t, "1.")
	require.Len(t, errs, 1)
	assert.Equal(t, InvalidNumber, errs[0].Kind)
}

func TestNextToken_String(t *testing.T) {
	toks, errs := scanAll(t, `"hello world"`)
	assert.Empty(t, errs)
	require.Len(t, toks, 2)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Lexeme)
}

func TestNextToken_UnterminatedString(t *testing.T) {
	_, errs := scanAll(t, `"never closed`)
	require.Len(t, errs, 1)
	assert.Equal(t, UnterminatedString, errs[0].Kind)
}

func TestNextToken_StringIsBinarySafe(t *testing.T) {
	raw := "a\x80b" // \x80 is not valid UTF-8 on its own
	toks, errs := scanAll(t, `"`+raw+`"`)
	assert.Empty(t, errs)
	require.Len(t, toks, 2)
	assert.Equal(t, raw, toks[0].Lexeme)
}

func TestNextToken_CommentsAndWhitespace(t *testing.T) {
	toks, errs := scanAll(t, "let x = 1; // trailing comment\r\nlet y = 2;")
	assert.Empty(t, errs)
	assert.Equal(t, token.Let, toks[0].Kind)
	// line 2 should start right after the comment
	var foundSecondLet bool
	for _, tok := range toks {
		if tok.Kind == token.Let && tok.Line == 2 {
			foundSecondLet = true
		}
	}
	assert.True(t, foundSecondLet)
}

func TestNextToken_UnexpectedCharacter(t *testing.T) {
	_, errs := scanAll(t, "let x = @;")
	require.Len(t, errs, 1)
	assert.Equal(t, UnexpectedCharacter, errs[0].Kind)
	assert.Equal(t, '@', errs[0].Codepoint)
}

func TestNextToken_ErrorRecoveryContinuesScanning(t *testing.T) {
	toks, errs := scanAll(t, "@ let")
	require.Len(t, errs, 1)
	require.Len(t, toks, 2)
	assert.Equal(t, token.Let, toks[0].Kind)
	assert.Equal(t, token.EOF, toks[1].Kind)
}
