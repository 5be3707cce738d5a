// Package clipboard copies formatted citations to the system clipboard through
// the platform's clipboard command.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard command is installed.
var ErrUnavailable = errors.New("clipboard unavailable")

// command is a clipboard program and the arguments that make it read stdin.
type command struct {
	name string
	args []string
}

// candidates lists clipboard commands per GOOS, in order of preference.
var candidates = map[string][]command{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}},
}

// Clipboard writes text to a clipboard command.
type Clipboard struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args []string, stdin string) error
}

// New returns a Clipboard for the running system.
func New() *Clipboard {
	return &Clipboard{goos: runtime.GOOS, lookPath: exec.LookPath, run: runCommand}
}

func runCommand(name string, args []string, stdin string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Clipboard) find() (command, bool) {
	for _, cand := range candidates[c.goos] {
		if _, err := c.lookPath(cand.name); err == nil {
			return cand, true
		}
	}
	return command{}, false
}

// Available reports whether a clipboard command is installed.
func (c *Clipboard) Available() bool {
	_, ok := c.find()
	return ok
}

// Copy writes text to the clipboard. It returns ErrUnavailable when no
// clipboard command is installed.
func (c *Clipboard) Copy(text string) error {
	cmd, ok := c.find()
	if !ok {
		return ErrUnavailable
	}
	return c.run(cmd.name, cmd.args, text)
}
