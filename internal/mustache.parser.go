package internal

import (
	"strings"
	"sync"

	"github.com/edwingeng/deque"
	"go.uber.org/zap"
)

// CompilerConfig holds the settings every top-level compile starts from
type CompilerConfig struct {
	Delimiters Delimiters
	Pragmas    Pragmas
	Logger     *zap.Logger
}

// Compiler turns template text into a Program. The tokenizer for the
// configured delimiters lives as long as the compiler; tokenizers for
// delimiters set inside templates are kept in a bounded FIFO cache. The
// compiler is safe for concurrent use.
type Compiler struct {
	config       CompilerConfig
	preprocessor *PragmaPreprocessor
	logger       *zap.Logger
	base         *Tokenizer

	mu         sync.Mutex
	tokenizers map[Delimiters]*Tokenizer
	order      deque.Deque
}

// NewCompiler creates a compiler. Zero-valued delimiters fall back to
// "{{" / "}}".
func NewCompiler(config CompilerConfig) *Compiler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Delimiters.Open == "" || config.Delimiters.Close == "" {
		config.Delimiters = DefaultDelimiters()
	}
	if config.Pragmas.ImplicitIterator == "" {
		config.Pragmas = DefaultPragmas()
	}

	config.Logger.Debug(LogMsgCompilerCreated,
		zap.String(LogFieldOpen, config.Delimiters.Open),
		zap.String(LogFieldClose, config.Delimiters.Close),
		zap.String(LogFieldIterator, config.Pragmas.ImplicitIterator),
	)

	return &Compiler{
		config:       config,
		preprocessor: NewPragmaPreprocessor(),
		logger:       config.Logger,
		base:         NewTokenizer(config.Delimiters, config.Logger),
		tokenizers:   make(map[Delimiters]*Tokenizer),
		order:        deque.NewDeque(),
	}
}

// Config returns the compiler settings
func (c *Compiler) Config() CompilerConfig {
	return c.config
}

// Compile compiles a top-level template. Partials referenced anywhere in
// it are compiled into registry on first use.
func (c *Compiler) Compile(source string, registry *Registry) (Program, error) {
	c.logger.Debug(LogMsgParserStart, zap.Int(LogFieldSource, len(source)))

	prog, err := c.CompileFragment(source, c.config.Delimiters, c.config.Pragmas, registry)
	if err != nil {
		return nil, err
	}

	c.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldOps, len(prog)))
	return prog, nil
}

// CompileFragment compiles source under the given delimiters and pragmas.
// Section bodies and higher-order section fragments are compiled this way.
func (c *Compiler) CompileFragment(source string, delims Delimiters, pragmas Pragmas, registry *Registry) (Program, error) {
	var out Program
	p, err := c.newParser(source, delims, pragmas, registry, &out)
	if err != nil {
		return nil, err
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return out, nil
}

// compilePartial compiles partial source from the configured defaults;
// partials do not inherit the including template's delimiters or pragmas.
func (c *Compiler) compilePartial(source string, registry *Registry) (Program, error) {
	return c.CompileFragment(source, c.config.Delimiters, c.config.Pragmas, registry)
}

func (c *Compiler) tokenizer(delims Delimiters) *Tokenizer {
	if delims == c.config.Delimiters {
		return c.base
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tokenizers[delims]; ok {
		return t
	}

	t := NewTokenizer(delims, c.logger)
	c.tokenizers[delims] = t
	c.order.PushBack(delims)
	for c.order.Len() > MaxCachedTokenizers {
		delete(c.tokenizers, c.order.PopFront().(Delimiters))
	}
	return t
}

// cachedTokenizers reports how many custom-delimiter tokenizers are held
func (c *Compiler) cachedTokenizers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokenizers)
}

// parserState is the state of the section state machine
type parserState int

const (
	stateNormal parserState = iota
	stateScanningSection
)

// sectionRecord buffers the tokens of the section being scanned. children
// holds the names of nested sections that are still open, so their close
// tags are not mistaken for this section's.
type sectionRecord struct {
	name     string
	inverted bool
	buffer   []Token
	children []string
}

// parser consumes one token stream. A delimiter change hands the rest of
// the stream to a new parser that appends to the same out program.
type parser struct {
	compiler *Compiler
	registry *Registry
	delims   Delimiters
	pragmas  Pragmas
	tokens   []Token
	cursor   int
	state    parserState
	section  *sectionRecord
	out      *Program
}

func (c *Compiler) newParser(source string, delims Delimiters, pragmas Pragmas, registry *Registry, out *Program) (*parser, error) {
	text, applied, err := c.preprocessor.Process(source, &pragmas)
	if err != nil {
		return nil, err
	}
	if applied != "" {
		c.logger.Debug(LogMsgPragmaApplied,
			zap.String(LogFieldPragma, applied),
			zap.String(LogFieldIterator, pragmas.ImplicitIterator),
		)
	}

	return &parser{
		compiler: c,
		registry: registry,
		delims:   delims,
		pragmas:  pragmas,
		tokens:   c.tokenizer(delims).Tokenize(text),
		out:      out,
	}, nil
}

// run advances the cursor one token per step until the stream is exhausted
func (p *parser) run() error {
	for ; p.cursor < len(p.tokens); p.cursor++ {
		tok := p.tokens[p.cursor]
		if tok.IsEmpty() {
			continue
		}

		var err error
		switch p.state {
		case stateNormal:
			err = p.normal(tok)
		case stateScanningSection:
			err = p.scan(tok)
		}
		if err != nil {
			return err
		}
	}

	if p.state == stateScanningSection {
		return newUnclosedSectionError(p.section.name)
	}
	return nil
}

func (p *parser) emit(op Op) {
	*p.out = append(*p.out, op)
}

// emitLiteral merges adjacent literal text into one operation
func (p *parser) emitLiteral(text string) {
	if n := len(*p.out); n > 0 {
		if lit, ok := (*p.out)[n-1].(LiteralOp); ok {
			(*p.out)[n-1] = LiteralOp{Text: lit.Text + text}
			return
		}
	}
	p.emit(LiteralOp{Text: text})
}

func (p *parser) normal(tok Token) error {
	switch tok.Kind {
	case TokenKindComment:
		return nil

	case TokenKindSectionOpen, TokenKindSectionOpenInverted:
		p.section = &sectionRecord{
			name:     tok.TagName(p.delims),
			inverted: tok.Kind == TokenKindSectionOpenInverted,
		}
		p.state = stateScanningSection
		return nil

	case TokenKindSectionClose:
		return newUnbalancedSectionCloseError(tok)

	case TokenKindVariable:
		p.emit(VariableOp{Name: tok.TagName(p.delims), Escape: true})
		return nil

	case TokenKindUnescapedVariable:
		p.emit(VariableOp{Name: tok.TagName(p.delims), Escape: false})
		return nil

	case TokenKindPartial:
		return p.partial(tok)

	case TokenKindDelimiterChange:
		return p.changeDelimiters(tok)

	default:
		p.emitLiteral(tok.Text)
		return nil
	}
}

func (p *parser) scan(tok Token) error {
	rec := p.section

	switch tok.Kind {
	case TokenKindSectionOpen, TokenKindSectionOpenInverted:
		rec.children = append(rec.children, tok.TagName(p.delims))
		rec.buffer = append(rec.buffer, tok)
		return nil

	case TokenKindSectionClose:
		name := tok.TagName(p.delims)
		if n := len(rec.children); n > 0 && rec.children[n-1] == name {
			rec.children = rec.children[:n-1]
			rec.buffer = append(rec.buffer, tok)
			return nil
		}
		if name == rec.name {
			return p.closeSection()
		}
		return newUnexpectedSectionEndError(tok, name, rec.name)

	default:
		rec.buffer = append(rec.buffer, tok)
		return nil
	}
}

// closeSection compiles the buffered body and emits one SectionOp
func (p *parser) closeSection() error {
	rec := p.section
	source := JoinTokens(rec.buffer)

	body, err := p.compiler.CompileFragment(source, p.delims, p.pragmas, p.registry)
	if err != nil {
		return err
	}

	p.emit(&SectionOp{
		Name:     rec.name,
		Inverted: rec.inverted,
		Body:     body,
		Source:   source,
		Delims:   p.delims,
		Pragmas:  p.pragmas,
		Registry: p.registry,
		Compiler: p.compiler,
	})
	p.compiler.logger.Debug(LogMsgSectionCompiled,
		zap.String(LogFieldSection, rec.name),
		zap.Bool(LogFieldInverted, rec.inverted),
		zap.Int(LogFieldOps, len(body)),
	)

	p.section = nil
	p.state = stateNormal
	return nil
}

func (p *parser) partial(tok Token) error {
	name := tok.TagName(p.delims)
	err := p.registry.Resolve(name, func(source string) (Program, error) {
		return p.compiler.compilePartial(source, p.registry)
	})
	if err != nil {
		return err
	}
	p.emit(PartialOp{Name: name, Registry: p.registry})
	return nil
}

// changeDelimiters parses "=open close=" and compiles the remainder of the
// stream with the new pair, appending to the shared output.
func (p *parser) changeDelimiters(tok Token) error {
	delims, err := parseDelimiterTag(tok, p.delims)
	if err != nil {
		return err
	}

	rest := JoinTokens(p.tokens[p.cursor+1:])
	p.cursor = len(p.tokens)

	p.compiler.logger.Debug(LogMsgDelimiterChanged,
		zap.String(LogFieldOpen, delims.Open),
		zap.String(LogFieldClose, delims.Close),
	)

	next, err := p.compiler.newParser(rest, delims, p.pragmas, p.registry, p.out)
	if err != nil {
		return err
	}
	return next.run()
}

func parseDelimiterTag(tok Token, current Delimiters) (Delimiters, error) {
	text := tok.Text
	if len(text) < len(current.Open)+len(current.Close) {
		return Delimiters{}, newMalformedDelimiterTagError(tok)
	}
	inner := text[len(current.Open) : len(text)-len(current.Close)]
	if !strings.HasPrefix(inner, string(SigilDelimiterChange)) || !strings.HasSuffix(inner, string(SigilDelimiterChange)) || len(inner) < 2 {
		return Delimiters{}, newMalformedDelimiterTagError(tok)
	}

	fields := strings.Fields(inner[1 : len(inner)-1])
	if len(fields) != DelimiterTagFieldCount {
		return Delimiters{}, newMalformedDelimiterTagError(tok)
	}
	return Delimiters{Open: fields[0], Close: fields[1]}, nil
}
