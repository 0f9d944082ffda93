package actions

import (
	"errors"
	"fmt"

	"github.com/atomikpanda/blazesetup/internal/shell"
)

// ErrDeclined is wrapped by InstallError when the operator refuses an install.
var ErrDeclined = errors.New("declined by operator")

// InstallError reports a dependency that could not be installed.
type InstallError struct {
	Dependency string
	Command    string
	Result     shell.Result
	Err        error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s: %s", e.Dependency, failure(e.Command, e.Result, e.Err))
}

func (e *InstallError) Unwrap() error { return e.Err }

// CertificateError reports a failed or invalid certificate generation.
type CertificateError struct {
	Command string
	Result  shell.Result
	Err     error
}

func (e *CertificateError) Error() string {
	return "generate certificate: " + failure(e.Command, e.Result, e.Err)
}

func (e *CertificateError) Unwrap() error { return e.Err }

// BuildError reports a failed build configuration.
type BuildError struct {
	Dir     string
	Command string
	Result  shell.Result
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("configure build in %s: %s", e.Dir, failure(e.Command, e.Result, e.Err))
}

func (e *BuildError) Unwrap() error { return e.Err }

// IOError reports a filesystem operation that failed.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// failure describes why a command-backed operation failed: either err, or the
// command's non-zero exit and its diagnostic output.
func failure(command string, res shell.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	msg := fmt.Sprintf("%s exited with status %d", command, res.ExitCode)
	if detail := res.Detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}
