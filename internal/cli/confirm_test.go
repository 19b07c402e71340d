package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		want       bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "yes word", input: "yes\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty takes default no", input: "\n", want: false},
		{name: "empty takes default yes", input: "\n", defaultYes: true, want: true},
		{name: "garbage is no", input: "wat\n", defaultYes: true, want: false},
		{name: "eof takes default", input: "", defaultYes: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConfirmer(strings.NewReader(tt.input), &out)
			got, err := c.Confirm(context.Background(), "Expire rule 12?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Expire rule 12?")
		})
	}
}

func TestConfirmCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A pipe with no writer activity never delivers a line.
	blocked, blockedWriter := io.Pipe()
	defer blockedWriter.Close()
	c := NewConfirmer(blocked, &bytes.Buffer{})

	done := make(chan struct{})
	var err error
	go func() {
		_, err = c.Confirm(ctx, "Proceed?", false)
		close(done)
	}()

	select {
	case <-done:
		assert.ErrorIs(t, err, ErrInputCancelled)
	case <-time.After(time.Second):
		t.Fatal("Confirm did not return after context cancellation")
	}
}
