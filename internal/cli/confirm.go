package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Confirmer asks yes/no questions on a terminal, respecting context
// cancellation so an interrupt during a prompt aborts cleanly.
type Confirmer struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewConfirmer creates a confirmer reading from reader and writing
// prompts to writer.
func NewConfirmer(reader io.Reader, writer io.Writer) *Confirmer {
	if reader == nil {
		panic("reader cannot be nil")
	}
	return &Confirmer{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Confirm prints the question and waits for a y/n answer. Empty input
// takes the default. It returns ErrInputCancelled if the context is
// canceled before an answer arrives.
func (c *Confirmer) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	if _, err := fmt.Fprint(c.writer, FormatPrompt(question+" "+hint)); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := c.readLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine reads one line in a goroutine so the select below can give
// up as soon as the context is canceled. The goroutine may outlive the
// call, which is acceptable: the process is exiting anyway.
func (c *Confirmer) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		value, err := c.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && res.err != io.EOF {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}
