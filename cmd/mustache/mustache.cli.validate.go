package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-mustache"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	templatePath string
	partialsDir  string
	configPath   string
	format       string
}

// validationOutput is the JSON shape shared by the validate command and the
// /v1/validate endpoint.
type validationOutput struct {
	Valid    bool     `json:"valid"`
	Kind     string   `json:"kind,omitempty"`
	Error    string   `json:"error,omitempty"`
	Partials []string `json:"partials,omitempty"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		printError(stderr, ErrMsgUsage, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		printError(stderr, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	engine, storage, _, code := setupEngine(cfg.configPath, cfg.partialsDir, false, stderr)
	if code != ExitCodeSuccess {
		return code
	}
	if storage != nil {
		defer storage.Close()
	}

	result := validateSource(engine, string(templateSource), nil)

	if cfg.format == OutputFormatJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else if result.Valid {
		fmt.Fprintln(stdout, ValidationTextSuccess)
	} else {
		fmt.Fprintf(stdout, ValidationTextFailure+FmtNewline, result.Kind, result.Error)
	}

	if !result.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

// validateSource compiles source and reports the outcome. Extra partials
// apply to this compilation only.
func validateSource(engine *mustache.Engine, source string, partials map[string]string) validationOutput {
	tmpl, err := engine.ParseWithPartials(source, partials)
	if err != nil {
		kind, _ := mustache.ErrorKindOf(err)
		return validationOutput{Valid: false, Kind: string(kind), Error: err.Error()}
	}
	return validationOutput{Valid: true, Partials: tmpl.Partials()}
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := flag.NewFlagSet(CmdNameValidate, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &validateConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.partialsDir, FlagPartials, "", "")
	fs.StringVar(&cfg.partialsDir, FlagPartialsShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}
