// Package editor hands a rich-text document to the user's editor and reads
// back the result.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Editor runs an external editor command on a temporary file.
type Editor struct {
	// Command is the editor invocation, split on spaces ("code --wait").
	Command string
	// Ext is the temp file extension; it lets editors pick a mode.
	Ext string
}

// FromEnv returns an Editor using $VISUAL, then $EDITOR, then a platform
// default.
func FromEnv() Editor {
	cmd := os.Getenv("VISUAL")
	if cmd == "" {
		cmd = os.Getenv("EDITOR")
	}
	if cmd == "" {
		if runtime.GOOS == "windows" {
			cmd = "notepad"
		} else {
			cmd = "vi"
		}
	}
	return Editor{Command: cmd, Ext: ".html"}
}

// Edit opens doc in the editor and waits for it to exit. ok is false when the
// user cancelled: the file was left unchanged or emptied.
func (e Editor) Edit(ctx context.Context, doc string) (edited string, ok bool, err error) {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return "", false, fmt.Errorf("no editor configured")
	}

	f, err := os.CreateTemp("", "clipstack-*"+e.Ext)
	if err != nil {
		return "", false, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(doc); err != nil {
		_ = f.Close()
		return "", false, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("close temp file: %w", err)
	}

	args := append(fields[1:], path)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", false, fmt.Errorf("run %s: %w", fields[0], err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("read temp file: %w", err)
	}
	out = bytes.TrimRight(out, "\n")
	if len(bytes.TrimSpace(out)) == 0 || string(out) == strings.TrimRight(doc, "\n") {
		return "", false, nil
	}
	return string(out), true, nil
}
