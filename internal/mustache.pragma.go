package internal

import (
	"regexp"
	"strings"
)

// Pragmas holds template-global behavior flags set by pragma tags
type Pragmas struct {
	ImplicitIterator string // Key used to wrap bare sequence elements (default: ".")
}

// DefaultPragmas returns the flags in effect when no pragma is present
func DefaultPragmas() Pragmas {
	return Pragmas{
		ImplicitIterator: DefaultIteratorKey,
	}
}

// Iterator returns the implicit iterator key, falling back to the default
func (p Pragmas) Iterator() string {
	if p.ImplicitIterator == "" {
		return DefaultIteratorKey
	}
	return p.ImplicitIterator
}

// pragmaDirective applies one pragma's options to the flags
type pragmaDirective func(flags *Pragmas, options map[string]string)

// PragmaPreprocessor strips the first pragma tag from template text and
// applies it. The directive table is fixed at construction.
type PragmaPreprocessor struct {
	pattern    *regexp.Regexp
	directives map[string]pragmaDirective
}

// NewPragmaPreprocessor creates a preprocessor with the built-in directives
func NewPragmaPreprocessor() *PragmaPreprocessor {
	return &PragmaPreprocessor{
		pattern: regexp.MustCompile(PragmaTagPattern),
		directives: map[string]pragmaDirective{
			PragmaImplicitIterator: applyImplicitIterator,
		},
	}
}

func applyImplicitIterator(flags *Pragmas, options map[string]string) {
	flags.ImplicitIterator = DefaultIteratorKey
	if key, ok := options[PragmaOptionIterator]; ok && key != "" {
		flags.ImplicitIterator = key
	}
}

// Process applies the first pragma found in text to flags and returns the
// text with that tag removed. Only one pragma is applied per call.
func (p *PragmaPreprocessor) Process(text string, flags *Pragmas) (string, string, error) {
	if !strings.Contains(text, PragmaOpenSequence) {
		return text, StringValueEmpty, nil
	}

	loc := p.pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, StringValueEmpty, nil
	}

	name := text[loc[2]:loc[3]]
	suffix := text[loc[6]:loc[7]]

	options, err := parsePragmaOptions(name, suffix)
	if err != nil {
		return text, name, err
	}

	directive, ok := p.directives[name]
	if !ok {
		return text, name, newUnsupportedPragmaError(name)
	}
	directive(flags, options)

	return text[:loc[0]] + text[loc[1]:], name, nil
}

// parsePragmaOptions parses a comma-separated key=value list
func parsePragmaOptions(pragma, suffix string) (map[string]string, error) {
	if suffix == "" {
		return nil, nil
	}

	pairs := strings.Split(suffix, PragmaOptionSeparator)
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		kv := strings.Split(pair, PragmaKeyValueSeparator)
		if len(kv) != PragmaKeyValueFieldCount {
			return nil, newMalformedPragmaOptionsError(pragma, pair)
		}
		options[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return options, nil
}
