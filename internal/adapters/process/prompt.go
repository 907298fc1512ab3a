package process

import (
	"bufio"
	"fmt"
	"io"
)

// ConsolePrompter prints the pid of a debug-mode worker and waits for a line
// on In before setup continues.
type ConsolePrompter struct {
	In  io.Reader
	Out io.Writer
}

func (c ConsolePrompter) WaitForDebugger(role string, pid int) {
	fmt.Fprintf(c.Out, "Puppet %q is starting. Attach a debugger to PID %d, then press Enter to continue.\n", role, pid)
	_, _ = bufio.NewReader(c.In).ReadString('\n')
}
