package main

import "time"

// Command names
const (
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameServe    = "serve"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagPartials = "partials"
	FlagLambdas  = "lambdas"
	FlagConfig   = "config"
	FlagOutput   = "output"
	FlagWatch    = "watch"
	FlagFormat   = "format"
	FlagAddr     = "addr"
	FlagVerbose  = "verbose"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagPartialsShort = "p"
	FlagLambdasShort  = "l"
	FlagConfigShort   = "c"
	FlagOutputShort   = "o"
	FlagWatchShort    = "w"
	FlagFormatShort   = "F"
	FlagAddrShort     = "a"
	FlagVerboseShort  = "v"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
	FlagDefaultAddr   = ":8080"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand      = "unknown command"
	ErrMsgUsage               = "invalid usage"
	ErrMsgMissingTemplate     = "template source required"
	ErrMsgInvalidData         = "invalid view data"
	ErrMsgDataNotMapping      = "view data must be a mapping"
	ErrMsgReadFileFailed      = "failed to read file"
	ErrMsgWriteOutputFailed   = "failed to write output"
	ErrMsgParseTemplateFailed = "template parsing failed"
	ErrMsgRenderFailed        = "template rendering failed"
	ErrMsgInvalidFormat       = "invalid output format"
	ErrMsgConfigFailed        = "failed to load config"
	ErrMsgStorageFailed       = "failed to open partial storage"
	ErrMsgLambdasFailed       = "failed to load lambdas"
	ErrMsgLambdasNotObject    = "lambdas must be an object of functions"
	ErrMsgLambdaNotFunction   = "lambda is not a function"
	ErrMsgLambdaCallFailed    = "lambda call failed"
	ErrMsgWatchNeedsPartials  = "watch requires a partials directory"
	ErrMsgWatchFailed         = "watching partials failed"
	ErrMsgServeFailed         = "server failed"
	ErrMsgInvalidRequest      = "invalid request body"
	ErrMsgListPartialsFailed  = "failed to list stored partials"
)

// Lambda script contract
const (
	LambdasVarName = "lambdas"
)

// Log messages
const (
	LogMsgRerender     = "re-rendering after partial change"
	LogMsgServing      = "serving"
	LogMsgShuttingDown = "shutting down"
	LogFieldAddr       = "addr"
)

// Config file defaults
const (
	ConfigLogLevelDebug = "debug"
)

// HTTP routes and response fields
const (
	RouteHealth   = "/healthz"
	RouteRender   = "/v1/render"
	RouteValidate = "/v1/validate"
	RoutePartials = "/v1/partials"

	HealthStatusOK = "ok"

	ServeShutdownTimeout = 10 * time.Second
	ServeReadTimeout     = 30 * time.Second
)

// Help text templates
const (
	HelpMainUsage = `go-mustache - logic-less mustache templates

Usage:
    mustache <command> [options]

Commands:
    render      Render a template with data
    validate    Compile a template without rendering
    serve       Serve render and validate over HTTP
    version     Show version information
    help        Show help for a command

Use "mustache help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template with data

Usage:
    mustache render [options]

Options:
    -t, --template <file>    Template file (use "-" for stdin)
    -d, --data <json|yaml>   View data string
    -f, --data-file <file>   View data file (JSON or YAML)
    -p, --partials <dir>     Directory of <name>.mustache partials
    -l, --lambdas <file>     JavaScript file defining "var lambdas = {...}"
    -c, --config <file>      YAML config file
    -o, --output <file>      Output file (default: stdout)
    -w, --watch              Re-render when a partial changes (needs -p)
    -v, --verbose            Debug logging to stderr

Examples:
    mustache render -t page.mustache -d '{"name": "Alice"}'
    mustache render -t page.mustache -f data.yaml -p partials/
    cat page.mustache | mustache render -t - -d 'name: Bob'
    mustache render -t page.mustache -f data.json -l lambdas.js -o page.html`

	HelpValidateUsage = `Compile a template without rendering

Usage:
    mustache validate [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -p, --partials <dir>    Directory of <name>.mustache partials
    -c, --config <file>     YAML config file
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    mustache validate -t page.mustache
    cat page.mustache | mustache validate -t - -F json`

	HelpServeUsage = `Serve render and validate over HTTP

Usage:
    mustache serve [options]

Options:
    -a, --addr <addr>       Listen address (default: :8080)
    -p, --partials <dir>    Directory of <name>.mustache partials
    -c, --config <file>     YAML config file
    -v, --verbose           Debug logging to stderr

Endpoints:
    GET  /healthz
    POST /v1/render     {"template": "...", "data": {...}, "partials": {...}}
    POST /v1/validate   {"template": "...", "partials": {...}}
    GET  /v1/partials`

	HelpVersionUsage = `Show version information

Usage:
    mustache version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    mustache help [command]

Commands:
    render      Show help for render command
    validate    Show help for validate command
    serve       Show help for serve command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-mustache version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Validation output
const (
	ValidationTextSuccess = "Template is valid"
	ValidationTextFailure = "Template is invalid [%s]: %v"
)

// CLI metadata
const (
	CLIName = "mustache"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtNewline         = "\n"
)
