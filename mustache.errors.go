package mustache

import (
	"errors"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-mustache/internal"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Compile errors
	ErrMsgCompileFailed = "template compilation failed"

	// Render errors
	ErrMsgRenderFailed = "template rendering failed"
	ErrMsgWriteFailed  = "failed to write rendered output"

	// Engine errors
	ErrMsgEmptyPartialName = "partial name cannot be empty"
	ErrMsgNoStorage        = "no partial storage configured"
	ErrMsgNilSink          = "render sink cannot be nil"
)

// Error code constants for categorization
const (
	ErrCodeCompile = "MUSTACHE_COMPILE"
	ErrCodeRender  = "MUSTACHE_RENDER"
	ErrCodeStorage = "MUSTACHE_STORAGE"
	ErrCodeEngine  = "MUSTACHE_ENGINE"
)

// Metadata keys attached to compile errors
const (
	MetaKeyKind     = "kind"
	MetaKeyName     = "name"
	MetaKeyToken    = "token"
	MetaKeyExpected = "expected"
	MetaKeyPartial  = "partial"
)

// ErrorKind classifies why a template failed to compile
type ErrorKind = internal.ErrorKind

// Compile error kinds
const (
	ErrorKindUnsupportedPragma      = internal.ErrorKindUnsupportedPragma
	ErrorKindMalformedPragmaOptions = internal.ErrorKindMalformedPragmaOptions
	ErrorKindUnbalancedSectionClose = internal.ErrorKindUnbalancedSectionClose
	ErrorKindUnexpectedSectionEnd   = internal.ErrorKindUnexpectedSectionEnd
	ErrorKindUnclosedSection        = internal.ErrorKindUnclosedSection
	ErrorKindMalformedDelimiterTag  = internal.ErrorKindMalformedDelimiterTag
	ErrorKindUnknownPartial         = internal.ErrorKindUnknownPartial
	ErrorKindPartialLoadFailed      = internal.ErrorKindPartialLoadFailed
)

// NewCompileError wraps a compiler failure. Errors produced by the
// compiler carry their kind, subject and offending tag as metadata.
func NewCompileError(cause error) error {
	err := cuserr.WrapStdError(cause, ErrCodeCompile, ErrMsgCompileFailed)

	var compileErr *internal.CompileError
	if !errors.As(cause, &compileErr) {
		return err
	}

	err = err.WithMetadata(MetaKeyKind, string(compileErr.Kind))
	if compileErr.Name != "" {
		err = err.WithMetadata(MetaKeyName, compileErr.Name)
	}
	if compileErr.Token != "" {
		err = err.WithMetadata(MetaKeyToken, compileErr.Token)
	}
	if compileErr.Expected != "" {
		err = err.WithMetadata(MetaKeyExpected, compileErr.Expected)
	}
	return err
}

// NewRenderError wraps a failure raised while rendering
func NewRenderError(cause error) error {
	if kind, ok := ErrorKindOf(cause); ok {
		return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgRenderFailed).
			WithMetadata(MetaKeyKind, string(kind))
	}
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgRenderFailed)
}

// NewWriteError wraps an io.Writer failure during Execute
func NewWriteError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgWriteFailed)
}

// NewEmptyPartialNameError creates an error for blank partial names
func NewEmptyPartialNameError() error {
	return cuserr.NewValidationError(ErrCodeEngine, ErrMsgEmptyPartialName)
}

// NewNoStorageError creates an error for storage operations on an engine
// built without WithPartialStorage
func NewNoStorageError(name string) error {
	return cuserr.NewValidationError(ErrCodeStorage, ErrMsgNoStorage).
		WithMetadata(MetaKeyPartial, name)
}

// ErrorKindOf returns the compile error kind carried by err, if any
func ErrorKindOf(err error) (ErrorKind, bool) {
	var compileErr *internal.CompileError
	if errors.As(err, &compileErr) {
		return compileErr.Kind, true
	}
	var customErr *cuserr.CustomError
	if errors.As(err, &customErr) {
		if kind, ok := customErr.GetMetadata(MetaKeyKind); ok {
			return ErrorKind(kind), true
		}
	}
	return "", false
}

func isKind(err error, kind ErrorKind) bool {
	got, ok := ErrorKindOf(err)
	return ok && got == kind
}

// IsUnsupportedPragma reports whether err names an unknown pragma
func IsUnsupportedPragma(err error) bool {
	return isKind(err, ErrorKindUnsupportedPragma)
}

// IsMalformedPragmaOptions reports whether err is a bad pragma option list
func IsMalformedPragmaOptions(err error) bool {
	return isKind(err, ErrorKindMalformedPragmaOptions)
}

// IsUnbalancedSectionClose reports whether err is a close tag with no open section
func IsUnbalancedSectionClose(err error) bool {
	return isKind(err, ErrorKindUnbalancedSectionClose)
}

// IsUnexpectedSectionEnd reports whether err is a close tag naming the wrong section
func IsUnexpectedSectionEnd(err error) bool {
	return isKind(err, ErrorKindUnexpectedSectionEnd)
}

// IsUnclosedSection reports whether err is a section left open at end of input
func IsUnclosedSection(err error) bool {
	return isKind(err, ErrorKindUnclosedSection)
}

// IsMalformedDelimiterTag reports whether err is a bad delimiter change tag
func IsMalformedDelimiterTag(err error) bool {
	return isKind(err, ErrorKindMalformedDelimiterTag)
}

// IsUnknownPartial reports whether err names a partial that is not registered
func IsUnknownPartial(err error) bool {
	return isKind(err, ErrorKindUnknownPartial)
}

// IsPartialLoadFailed reports whether err is a storage failure while loading a partial
func IsPartialLoadFailed(err error) bool {
	return isKind(err, ErrorKindPartialLoadFailed)
}
