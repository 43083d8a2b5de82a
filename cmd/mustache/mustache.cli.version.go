package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"

	"gopkg.in/yaml.v3"
)

// versionSearchPaths are tried in order; the first readable file wins.
var versionSearchPaths = []string{"versions.yaml", "../versions.yaml", "../../versions.yaml"}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// versionsFile mirrors versions.yaml at the repository root.
type versionsFile struct {
	Project struct {
		Version string `yaml:"version"`
	} `yaml:"project"`
	Git struct {
		Commit string `yaml:"commit"`
		Branch string `yaml:"branch"`
	} `yaml:"git"`
	Build struct {
		Time      string `yaml:"time"`
		GoVersion string `yaml:"go_version"`
	} `yaml:"build"`
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	format, err := parseVersionFlags(args)
	if err != nil {
		printError(stderr, ErrMsgInvalidFormat, err)
		return ExitCodeUsageError
	}

	info := loadVersionInfo(versionSearchPaths)
	if format == OutputFormatJSON {
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Fprintln(stdout, string(out))
		return ExitCodeSuccess
	}

	fmt.Fprintf(stdout, VersionTextTemplate+FmtNewline,
		info.Version, info.Commit, info.Branch, info.BuildTime, info.GoVersion)
	return ExitCodeSuccess
}

func parseVersionFlags(args []string) (string, error) {
	fs := flag.NewFlagSet(CmdNameVersion, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var format string
	fs.StringVar(&format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if format != OutputFormatText && format != OutputFormatJSON {
		return "", errors.New(ErrMsgInvalidFormat)
	}
	return format, nil
}

// loadVersionInfo reads the first versions.yaml found in paths. Without one it
// falls back to the module version embedded by the Go toolchain.
func loadVersionInfo(paths []string) *versionInfo {
	info := &versionInfo{
		Version:   VersionUnknown,
		Commit:    VersionUnknown,
		Branch:    VersionUnknown,
		BuildTime: VersionUnknown,
		GoVersion: runtime.Version(),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var vf versionsFile
		if err := yaml.Unmarshal(data, &vf); err != nil {
			continue
		}

		setIfPresent(&info.Version, vf.Project.Version)
		setIfPresent(&info.Commit, vf.Git.Commit)
		setIfPresent(&info.Branch, vf.Git.Branch)
		setIfPresent(&info.BuildTime, vf.Build.Time)
		setIfPresent(&info.GoVersion, vf.Build.GoVersion)
		return info
	}

	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	return info
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
