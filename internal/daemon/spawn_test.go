package daemon

import (
	"bytes"
	"reflect"
	"testing"
)

func TestDaemonCommand(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	cmd := daemonCommand("/usr/local/bin/erldoc", &stderr)

	if want := []string{"/usr/local/bin/erldoc", "daemon"}; !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("args = %v, want %v", cmd.Args, want)
	}
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setsid {
		t.Error("daemon does not start a new session")
	}
	if cmd.Stderr != &stderr {
		t.Error("stderr not redirected")
	}
	if cmd.Stdin != nil || cmd.Stdout != nil {
		t.Error("daemon inherits the terminal")
	}
}
