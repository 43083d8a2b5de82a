package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsatony/go-mustache"
)

func TestRun_Validate(t *testing.T) {
	tmpDir := setupTestData(t)

	t.Run("valid template", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", filepath.Join(tmpDir, "template.mustache")},
			strings.NewReader(""), stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeSuccess, exitCode)
		assert.Contains(t, stdout.String(), ValidationTextSuccess)
	})

	t.Run("invalid template text", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", filepath.Join(tmpDir, "invalid.mustache")},
			strings.NewReader(""), stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeValidationError, exitCode)
		assert.Contains(t, stdout.String(), string(mustache.ErrorKindUnclosedSection))
	})

	t.Run("invalid template json", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", "-", "-F", OutputFormatJSON},
			strings.NewReader("{{#a}}{{/b}}"), stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeValidationError, exitCode)

		var out validationOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.False(t, out.Valid)
		assert.Equal(t, string(mustache.ErrorKindUnexpectedSectionEnd), out.Kind)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("partials from directory", func(t *testing.T) {
		partialsDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(partialsDir, "footer.mustache"), []byte("bye"), FilePermissions))

		stdout := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", "-", "-p", partialsDir, "-F", OutputFormatJSON},
			strings.NewReader("{{>footer}}"), stdout, &bytes.Buffer{})

		require.Equal(t, ExitCodeSuccess, exitCode)
		var out validationOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.True(t, out.Valid)
		assert.Equal(t, []string{"footer"}, out.Partials)
	})

	t.Run("unknown partial", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", "-"}, strings.NewReader("{{>footer}}"), stdout, &bytes.Buffer{})

		assert.Equal(t, ExitCodeValidationError, exitCode)
		assert.Contains(t, stdout.String(), string(mustache.ErrorKindUnknownPartial))
	})

	t.Run("invalid format", func(t *testing.T) {
		stderr := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate, "-t", "-", "-F", "xml"}, strings.NewReader(""), &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitCodeUsageError, exitCode)
		assert.Contains(t, stderr.String(), ErrMsgInvalidFormat)
	})

	t.Run("missing template", func(t *testing.T) {
		stderr := &bytes.Buffer{}
		exitCode := run([]string{CmdNameValidate}, strings.NewReader(""), &bytes.Buffer{}, stderr)

		assert.Equal(t, ExitCodeUsageError, exitCode)
		assert.Contains(t, stderr.String(), ErrMsgMissingTemplate)
	})
}
