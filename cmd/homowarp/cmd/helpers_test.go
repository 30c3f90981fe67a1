package cmd

import (
	"bytes"
	"testing"
)

const (
	halfSrc      = "0,0;2,0;0,2;2,2"
	halfDst      = "0,0;1,0;0,1;1,1"
	collinearSrc = "0,0;1,1;2,2;5,0"
)

// execute runs a fresh command tree with args and returns stdout and stderr.
// HOME points at a temporary directory so no user configuration leaks in.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
