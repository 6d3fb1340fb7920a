package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal drives an interactive text console over the Monitor, reading
// one line per command instead of framed binary requests — the local
// equivalent of attaching the wire protocol over a serial link.
//
// Grounded on the teacher's terminal_host.go raw-mode line editor, which
// puts stdin into raw mode via golang.org/x/term for single-keystroke
// response and restores cooked mode on exit; reused here verbatim for
// the debug console rather than a game's keyboard input.
type Terminal struct {
	mon *Monitor
	out io.Writer
}

// NewTerminal creates a console over mon, writing prompts/output to out.
func NewTerminal(mon *Monitor, out io.Writer) *Terminal {
	return &Terminal{mon: mon, out: out}
}

// RunInteractive puts the controlling terminal into raw mode, then reads
// newline-terminated commands from stdin until EOF or "quit". Raw mode
// is restored before returning, even on error.
func (t *Terminal) RunInteractive() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return t.RunScripted(os.Stdin)
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("debug: entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	vt := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, t.out}, "jop> ")

	for {
		line, err := vt.ReadLine()
		if err != nil {
			return nil
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		t.runLine(line)
	}
}

// RunScripted reads one command per line from r (no raw-mode terminal
// required), for use under a test harness or a non-interactive pipe.
func (t *Terminal) RunScripted(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "quit" || line == "exit" {
			return nil
		}
		t.runLine(line)
	}
	return sc.Err()
}

func (t *Terminal) runLine(line string) {
	var coreIdx int
	var cmdName string
	if n, _ := fmt.Sscanf(line, "%d %s", &coreIdx, &cmdName); n < 2 {
		fmt.Fprintf(t.out, "usage: <core> <halt|resume|step|stepbc|regs|ping|info>\n")
		return
	}
	cmdType, ok := commandByName[cmdName]
	if !ok {
		fmt.Fprintf(t.out, "unknown command %q\n", cmdName)
		return
	}
	resp, err := t.mon.Handle(&Frame{Type: cmdType, Core: byte(coreIdx)})
	if err != nil {
		fmt.Fprintf(t.out, "error: %v\n", err)
		return
	}
	switch resp.Type {
	case RespError:
		fmt.Fprintf(t.out, "error: %s\n", string(resp.Payload))
	case RespData:
		fmt.Fprintf(t.out, "data: % x\n", resp.Payload)
	default:
		fmt.Fprintf(t.out, "ok\n")
	}
}

var commandByName = map[string]CommandType{
	"halt":    CmdHalt,
	"resume":  CmdResume,
	"step":    CmdStepMicrocode,
	"stepbc":  CmdStepBytecode,
	"regs":    CmdReadRegisters,
	"ping":    CmdPing,
	"info":    CmdQueryInfo,
}
