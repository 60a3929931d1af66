//go:build !unix

package runner

import "os/exec"

// setProcessGroup falls back to killing the direct child.
func setProcessGroup(c *exec.Cmd) {}
