// Package buildtool invokes external tools on project files: the build tool
// (msbuild) once per configuration, and the project upgrade tool (devenv).
package buildtool

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/xerrors"
)

// Error is returned when the build tool did not exit successfully for one
// (project, configuration) pair.
type Error struct {
	Project       string
	Configuration string
	ExitCode      int // -1 if the tool did not run to completion
	Err           error
}

func (e *Error) Error() string {
	return fmt.Sprintf("building %s (%s): exit code %d: %v", e.Project, e.Configuration, e.ExitCode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Tool is the build tool. Only its exit code is interpreted.
type Tool struct {
	// Command is the tool and its leading arguments, e.g. {"msbuild"}.
	Command []string

	// Args are appended after the project file, e.g. {"/t:gtest"}.
	Args []string

	// Dir is the working directory. If empty, the current directory is used.
	Dir string

	// Env is appended to the environment of the current process.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

func (t *Tool) command(ctx context.Context, args ...string) (*exec.Cmd, error) {
	if len(t.Command) == 0 {
		return nil, xerrors.Errorf("no command configured")
	}
	argv := append(append([]string{}, t.Command[1:]...), args...)
	cmd := exec.CommandContext(ctx, t.Command[0], argv...)
	cmd.Dir = t.Dir
	if len(t.Env) > 0 {
		cmd.Env = append(os.Environ(), t.Env...)
	}
	cmd.Stdout = t.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = t.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd, nil
}

// Run builds project in the named configuration, e.g.
// msbuild gtest.sln /p:Configuration=Debug.
func (t *Tool) Run(ctx context.Context, project, configuration string) error {
	args := append([]string{project}, t.Args...)
	args = append(args, "/p:Configuration="+configuration)
	cmd, err := t.command(ctx, args...)
	if err != nil {
		return &Error{Project: project, Configuration: configuration, ExitCode: -1, Err: err}
	}
	if err := cmd.Run(); err != nil {
		code := -1
		var ee *exec.ExitError
		if xerrors.As(err, &ee) {
			code = ee.ExitCode()
		}
		return &Error{
			Project:       project,
			Configuration: configuration,
			ExitCode:      code,
			Err:           xerrors.Errorf("%v: %w", cmd.Args, err),
		}
	}
	return nil
}

// Upgrade runs the tool as a project upgrader: devenv /upgrade <fn>.
func (t *Tool) Upgrade(ctx context.Context, fn string) error {
	cmd, err := t.command(ctx, "/upgrade", fn)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("%v: %w", cmd.Args, err)
	}
	return nil
}
