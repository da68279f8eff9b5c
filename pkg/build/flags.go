// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags. This information is shown by --version
// and logged at startup.
package build

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Description is the one-line summary shown in CLI help.
const Description = "Real-time audio spectrum analyzer"

// ErrMissingFlag is wrapped by Initialize for every ldflag left empty.
var ErrMissingFlag = eris.New("build flag is required")

type ldFlags struct {
	Name        string
	Time        string
	Commit      string
	Version     string
	Description string
}

// String formats the flags for --version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "punchy",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
		Description: Description,
	}
)

// Initialize copies build information from ldflags variables into the
// build flags. It returns an error naming the first missing flag, in which
// case the development defaults stay in place and the caller may carry on.
func Initialize() error {
	if buildName == "" {
		return eris.Wrap(ErrMissingFlag, "BuildName")
	}
	if buildTime == "" {
		return eris.Wrap(ErrMissingFlag, "BuildTime")
	}
	if buildCommit == "" {
		return eris.Wrap(ErrMissingFlag, "BuildCommit")
	}
	if buildVersion == "" {
		return eris.Wrap(ErrMissingFlag, "BuildVersion")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
