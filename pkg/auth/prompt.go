package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrDeclined is returned when the user declines a confirmation.
var ErrDeclined = errors.New("authorization declined")

// Prompter blocks until the user confirms an interactive step.
type Prompter interface {
	Confirm(ctx context.Context, message string) error
}

// TerminalPrompter asks on the terminal. On a TTY it shows a yes/no form,
// otherwise it waits for a line on In.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Confirm(ctx context.Context, message string) error {
	if isTerminal(p.In) {
		confirmed := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(message).
					Affirmative("Done").
					Negative("Cancel").
					Value(&confirmed),
			),
		).WithShowHelp(false).WithInput(p.In).WithOutput(p.Out)
		if err := form.RunWithContext(ctx); err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}
		if !confirmed {
			return ErrDeclined
		}
		return nil
	}
	return LinePrompter{In: p.In, Out: p.Out}.Confirm(ctx, message)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// LinePrompter prints message and waits for any line on In.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p LinePrompter) Confirm(ctx context.Context, message string) error {
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s [press Enter] ", message)
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return fmt.Errorf("%w: input closed", ErrDeclined)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return ctx.Err()
}
