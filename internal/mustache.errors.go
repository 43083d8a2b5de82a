package internal

import "fmt"

// ErrorKind classifies compile failures
type ErrorKind string

// Error kind constants
const (
	ErrorKindUnsupportedPragma      ErrorKind = "UNSUPPORTED_PRAGMA"
	ErrorKindMalformedPragmaOptions ErrorKind = "MALFORMED_PRAGMA_OPTIONS"
	ErrorKindUnbalancedSectionClose ErrorKind = "UNBALANCED_SECTION_CLOSE"
	ErrorKindUnexpectedSectionEnd   ErrorKind = "UNEXPECTED_SECTION_END"
	ErrorKindUnclosedSection        ErrorKind = "UNCLOSED_SECTION"
	ErrorKindMalformedDelimiterTag  ErrorKind = "MALFORMED_DELIMITER_TAG"
	ErrorKindUnknownPartial         ErrorKind = "UNKNOWN_PARTIAL"
	ErrorKindPartialLoadFailed      ErrorKind = "PARTIAL_LOAD_FAILED"
)

// Compile error message constants
const (
	ErrMsgUnsupportedPragma      = "unsupported pragma"
	ErrMsgMalformedPragmaOptions = "malformed pragma options"
	ErrMsgUnbalancedSectionClose = "unbalanced end section tag"
	ErrMsgUnexpectedSectionEnd   = "unexpected section end tag"
	ErrMsgUnclosedSection        = "section is never closed"
	ErrMsgMalformedDelimiterTag  = "malformed change delimiter tag"
	ErrMsgUnknownPartial         = "unknown partial"
	ErrMsgPartialLoadFailed      = "failed to load partial"
)

// Format strings
const (
	ErrFmtCompile         = "%s: %q"
	ErrFmtCompileExpected = "%s: %q (expected %q)"
	ErrFmtCompileCause    = "%s: %q: %v"
)

// CompileError represents a failure to compile a template.
// Name carries the pragma, section or partial the failure concerns;
// Expected is only set for ErrorKindUnexpectedSectionEnd.
type CompileError struct {
	Kind     ErrorKind
	Message  string
	Name     string
	Token    string
	Expected string
	Cause    error
}

func (e *CompileError) Error() string {
	subject := e.Name
	if subject == "" {
		subject = e.Token
	}
	if e.Expected != "" {
		return fmt.Sprintf(ErrFmtCompileExpected, e.Message, subject, e.Expected)
	}
	if e.Cause != nil {
		return fmt.Sprintf(ErrFmtCompileCause, e.Message, subject, e.Cause)
	}
	return fmt.Sprintf(ErrFmtCompile, e.Message, subject)
}

// Unwrap returns the underlying cause
func (e *CompileError) Unwrap() error {
	return e.Cause
}

func newUnsupportedPragmaError(pragma string) error {
	return &CompileError{
		Kind:    ErrorKindUnsupportedPragma,
		Message: ErrMsgUnsupportedPragma,
		Name:    pragma,
	}
}

func newMalformedPragmaOptionsError(pragma, option string) error {
	return &CompileError{
		Kind:    ErrorKindMalformedPragmaOptions,
		Message: ErrMsgMalformedPragmaOptions,
		Name:    pragma,
		Token:   option,
	}
}

func newUnbalancedSectionCloseError(tok Token) error {
	return &CompileError{
		Kind:    ErrorKindUnbalancedSectionClose,
		Message: ErrMsgUnbalancedSectionClose,
		Token:   tok.Text,
	}
}

func newUnexpectedSectionEndError(tok Token, actual, expected string) error {
	return &CompileError{
		Kind:     ErrorKindUnexpectedSectionEnd,
		Message:  ErrMsgUnexpectedSectionEnd,
		Name:     actual,
		Token:    tok.Text,
		Expected: expected,
	}
}

func newUnclosedSectionError(name string) error {
	return &CompileError{
		Kind:    ErrorKindUnclosedSection,
		Message: ErrMsgUnclosedSection,
		Name:    name,
	}
}

func newMalformedDelimiterTagError(tok Token) error {
	return &CompileError{
		Kind:    ErrorKindMalformedDelimiterTag,
		Message: ErrMsgMalformedDelimiterTag,
		Token:   tok.Text,
	}
}

func newUnknownPartialError(name string) error {
	return &CompileError{
		Kind:    ErrorKindUnknownPartial,
		Message: ErrMsgUnknownPartial,
		Name:    name,
	}
}

func newPartialLoadError(name string, cause error) error {
	return &CompileError{
		Kind:    ErrorKindPartialLoadFailed,
		Message: ErrMsgPartialLoadFailed,
		Name:    name,
		Cause:   cause,
	}
}
