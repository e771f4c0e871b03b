package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// terminalShell stands in for the browser: tabs and popups are printed as
// instructions and notifications as plain lines.
type terminalShell struct {
	out     io.Writer
	nextTab atomic.Int64
}

func newTerminalShell(out io.Writer) *terminalShell {
	return &terminalShell{out: out}
}

func (s *terminalShell) OpenPopup(ctx context.Context) error {
	_, err := fmt.Fprintln(s.out, "Not logged in. Selection saved; run `postoptima-ext popup` after logging in.")
	return err
}

func (s *terminalShell) OpenTab(ctx context.Context, url string) (int, error) {
	id := int(s.nextTab.Add(1))
	_, err := fmt.Fprintf(s.out, "Open in your browser: %s\n", url)
	return id, err
}

func (s *terminalShell) CloseTab(ctx context.Context, tabID int) error {
	return nil
}

func (s *terminalShell) Notify(ctx context.Context, title, message string) error {
	_, err := fmt.Fprintf(s.out, "[%s] %s\n", title, message)
	return err
}
