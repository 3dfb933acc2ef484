//go:build windows

package toolrun

import (
	"os/exec"
	"strings"
	"syscall"
)

// setVerbatim passes the arguments to the process without quoting.
func setVerbatim(cmd *exec.Cmd, verbatim bool) {
	if !verbatim {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: strings.Join(cmd.Args, " ")}
}
