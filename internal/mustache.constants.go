package internal

// TokenKind identifies the shape of a template fragment produced by the tokenizer
type TokenKind int

// Token kind constants
const (
	TokenKindLiteral TokenKind = iota
	TokenKindNewline
	TokenKindComment
	TokenKindSectionOpen
	TokenKindSectionOpenInverted
	TokenKindSectionClose
	TokenKindVariable
	TokenKindUnescapedVariable
	TokenKindPartial
	TokenKindDelimiterChange
)

// Token kind string names for debugging
const (
	TokenKindNameLiteral             = "LITERAL"
	TokenKindNameNewline             = "NEWLINE"
	TokenKindNameComment             = "COMMENT"
	TokenKindNameSectionOpen         = "SECTION_OPEN"
	TokenKindNameSectionOpenInverted = "SECTION_OPEN_INVERTED"
	TokenKindNameSectionClose        = "SECTION_CLOSE"
	TokenKindNameVariable            = "VARIABLE"
	TokenKindNameUnescapedVariable   = "UNESCAPED_VARIABLE"
	TokenKindNamePartial             = "PARTIAL"
	TokenKindNameDelimiterChange     = "DELIMITER_CHANGE"
)

// String returns the string representation of the token kind
func (k TokenKind) String() string {
	switch k {
	case TokenKindNewline:
		return TokenKindNameNewline
	case TokenKindComment:
		return TokenKindNameComment
	case TokenKindSectionOpen:
		return TokenKindNameSectionOpen
	case TokenKindSectionOpenInverted:
		return TokenKindNameSectionOpenInverted
	case TokenKindSectionClose:
		return TokenKindNameSectionClose
	case TokenKindVariable:
		return TokenKindNameVariable
	case TokenKindUnescapedVariable:
		return TokenKindNameUnescapedVariable
	case TokenKindPartial:
		return TokenKindNamePartial
	case TokenKindDelimiterChange:
		return TokenKindNameDelimiterChange
	default:
		return TokenKindNameLiteral
	}
}

// Tag sigils - the character directly following the open delimiter
const (
	SigilComment         = '!'
	SigilSection         = '#'
	SigilInverted        = '^'
	SigilSectionClose    = '/'
	SigilUnescaped       = '&'
	SigilUnescapedBrace  = '{'
	SigilPartial         = '>'
	SigilDelimiterChange = '='
	SigilPragma          = '%'
)

// Default delimiters
const (
	DefaultOpenDelim  = "{{"
	DefaultCloseDelim = "}}"
)

// Implicit iterator defaults
const (
	DefaultIteratorKey = "."
)

// Pragma names and options
const (
	PragmaImplicitIterator    = "IMPLICIT-ITERATOR"
	PragmaOptionIterator      = "iterator"
	PragmaOptionSeparator     = ","
	PragmaKeyValueSeparator   = "="
	PragmaOpenSequence        = DefaultOpenDelim + string(SigilPragma)
	PragmaTagPattern          = `\{\{%([\w-]+)(\s*)(.*?)\}\}`
	DelimiterTagFieldCount    = 2
	PragmaKeyValueFieldCount  = 2
	UnescapedBraceCloseSuffix = "}"
)

// Render limits
const (
	DefaultMaxDepth = 100
)

// Compiler limits
const (
	MaxCachedTokenizers = 32
)

// Value stringification constants
const (
	StringValueEmpty     = ""
	StringValueTrue      = "true"
	StringValueFalse     = "false"
	SequenceJoinSep      = ","
	StructTagName        = "mustache"
	StructTagIgnore      = "-"
	StructTagOptionSplit = ","
)

// HTML escaping replacement pairs, applied in this order
const (
	HTMLAmpersand       = "&"
	HTMLAmpersandEntity = "&amp;"
	HTMLLessThan        = "<"
	HTMLLessThanEntity  = "&lt;"
	HTMLGreaterThan     = ">"
	HTMLGreaterEntity   = "&gt;"
)

// Log message constants
const (
	LogMsgTokenizerCreated   = "tokenizer created"
	LogMsgTokenizerEnd       = "tokenization complete"
	LogMsgCompilerCreated    = "compiler created"
	LogMsgParserStart        = "starting parse"
	LogMsgParserEnd          = "parse complete"
	LogMsgSectionCompiled    = "section compiled"
	LogMsgDelimiterChanged   = "delimiters changed"
	LogMsgPragmaApplied      = "pragma applied"
	LogMsgRegistryCreated    = "partial registry created"
	LogMsgPartialCompiling   = "compiling partial"
	LogMsgPartialCompiled    = "partial compiled"
	LogMsgPartialLoaded      = "partial loaded"
	LogMsgRenderStart        = "starting render"
	LogMsgRenderEnd          = "render complete"
	LogMsgPartialDepthCapped = "partial nesting depth exceeded - rendering as no-op"
	LogMsgFragmentFailed     = "higher-order section fragment failed to compile"
)

// Log field names
const (
	LogFieldSource    = "source_length"
	LogFieldTokens    = "token_count"
	LogFieldOps       = "op_count"
	LogFieldSection   = "section"
	LogFieldInverted  = "inverted"
	LogFieldOpen      = "open"
	LogFieldClose     = "close"
	LogFieldPragma    = "pragma"
	LogFieldPartial   = "partial"
	LogFieldPartials  = "partial_count"
	LogFieldMaxDepth  = "max_depth"
	LogFieldIterator  = "iterator"
	LogFieldFrameSize = "stack_size"
)
