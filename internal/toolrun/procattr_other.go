//go:build !windows

package toolrun

import "os/exec"

func setVerbatim(_ *exec.Cmd, _ bool) {}
