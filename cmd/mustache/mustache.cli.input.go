package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var errorPrefix = color.New(color.FgRed, color.Bold)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// printError writes "msg: cause" to w with the message highlighted.
// Color is dropped automatically when w is not a terminal or NO_COLOR is set.
func printError(w io.Writer, msg string, cause error) {
	errorPrefix.Fprint(w, msg)
	fmt.Fprintf(w, ": %v\n", cause)
}

// parseViewData decodes a JSON or YAML document into a view mapping.
// JSON input works because it is a subset of YAML.
func parseViewData(data []byte) (map[string]any, error) {
	view := make(map[string]any)
	if len(data) == 0 {
		return view, nil
	}

	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	if decoded == nil {
		return view, nil
	}

	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: got %T", ErrMsgDataNotMapping, decoded)
	}
	return m, nil
}
