package internal

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Delimiters holds the open and close tag markers
type Delimiters struct {
	Open  string // Opening marker (default: "{{")
	Close string // Closing marker (default: "}}")
}

// DefaultDelimiters returns the default "{{" / "}}" pair
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Open:  DefaultOpenDelim,
		Close: DefaultCloseDelim,
	}
}

// String returns the pair as "open close"
func (d Delimiters) String() string {
	return d.Open + " " + d.Close
}

// Token is a single fragment of template text. Concatenating the Text of
// every token produced for a template yields the template again.
type Token struct {
	Kind TokenKind
	Text string
}

// String returns a human-readable representation of the token
func (t Token) String() string {
	return fmt.Sprintf("Token{%s: %q}", t.Kind, t.Text)
}

// IsEmpty returns true for zero-length fragments, which the parser skips
func (t Token) IsEmpty() bool {
	return t.Text == ""
}

// TagName extracts the variable, section or partial name from a tag token,
// stripping the delimiters, the sigil and surrounding whitespace.
func (t Token) TagName(d Delimiters) string {
	if len(t.Text) < len(d.Open)+len(d.Close) {
		return StringValueEmpty
	}
	inner := t.Text[len(d.Open) : len(t.Text)-len(d.Close)]

	switch t.Kind {
	case TokenKindSectionOpen, TokenKindSectionOpenInverted, TokenKindSectionClose, TokenKindPartial:
		inner = stripSigil(inner)
	case TokenKindUnescapedVariable:
		if strings.HasPrefix(inner, string(SigilUnescapedBrace)) {
			inner = strings.TrimSuffix(stripSigil(inner), UnescapedBraceCloseSuffix)
		} else {
			inner = stripSigil(inner)
		}
	}

	return strings.TrimSpace(inner)
}

func stripSigil(s string) string {
	if s == "" {
		return s
	}
	return s[1:]
}

// Capture groups of the tokenizer pattern
const (
	groupNewline = iota + 1
	groupComment
	groupTag
	groupDelimiterChange
	groupCount = groupDelimiterChange
)

// Tokenizer splits template text into tokens for one delimiter pair.
// The pattern is built once at construction.
type Tokenizer struct {
	delims  Delimiters
	pattern *regexp.Regexp
	logger  *zap.Logger
}

// NewTokenizer creates a tokenizer for the given delimiters
func NewTokenizer(delims Delimiters, logger *zap.Logger) *Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgTokenizerCreated,
		zap.String(LogFieldOpen, delims.Open),
		zap.String(LogFieldClose, delims.Close),
	)
	return &Tokenizer{
		delims:  delims,
		pattern: regexp.MustCompile(tokenizerPattern(delims)),
		logger:  logger,
	}
}

// tokenizerPattern builds the four-alternative tag pattern:
// newline | comment | tag with optional sigil | delimiter change
func tokenizerPattern(d Delimiters) string {
	open := regexp.QuoteMeta(d.Open)
	closing := regexp.QuoteMeta(d.Close)

	var sb strings.Builder
	sb.WriteString(`(\r?\n)`)
	sb.WriteString(`|(` + open + `![\s\S]*?!` + closing + `)`)
	sb.WriteString(`|(` + open + `[#\^/&{>=]?\s*\S*?\s*\}?` + closing + `)`)
	sb.WriteString(`|(` + open + `=\S*?\s*\S*?=` + closing + `)`)
	return sb.String()
}

// Delimiters returns the delimiter pair this tokenizer was built for
func (t *Tokenizer) Delimiters() Delimiters {
	return t.delims
}

// Tokenize splits text into literal fragments and captured tags, keeping
// the zero-length fragments between adjacent matches.
func (t *Tokenizer) Tokenize(text string) []Token {
	matches := t.pattern.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]Token, 0, len(matches)*2+1)

	last := 0
	for _, m := range matches {
		tokens = append(tokens, Token{Kind: TokenKindLiteral, Text: text[last:m[0]]})

		for g := groupNewline; g <= groupCount; g++ {
			start, end := m[2*g], m[2*g+1]
			if start < 0 {
				continue
			}
			fragment := text[start:end]
			tokens = append(tokens, Token{Kind: t.classify(g, fragment), Text: fragment})
			break
		}
		last = m[1]
	}
	tokens = append(tokens, Token{Kind: TokenKindLiteral, Text: text[last:]})

	t.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens
}

// classify maps a captured fragment to its token kind
func (t *Tokenizer) classify(group int, fragment string) TokenKind {
	switch group {
	case groupNewline:
		return TokenKindNewline
	case groupComment:
		return TokenKindComment
	case groupDelimiterChange:
		return TokenKindDelimiterChange
	}

	if len(fragment) <= len(t.delims.Open)+len(t.delims.Close) {
		return TokenKindVariable
	}

	switch fragment[len(t.delims.Open)] {
	case SigilComment:
		return TokenKindComment
	case SigilSection:
		return TokenKindSectionOpen
	case SigilInverted:
		return TokenKindSectionOpenInverted
	case SigilSectionClose:
		return TokenKindSectionClose
	case SigilUnescaped, SigilUnescapedBrace:
		return TokenKindUnescapedVariable
	case SigilPartial:
		return TokenKindPartial
	case SigilDelimiterChange:
		return TokenKindDelimiterChange
	default:
		return TokenKindVariable
	}
}

// JoinTokens reconstructs raw template text from tokens
func JoinTokens(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Text)
	}
	return sb.String()
}
