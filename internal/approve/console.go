package approve

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/kvit-s/applydiff/internal/patch"
)

// Console renders the preview to a terminal and reads a single y/n key. No
// answer before the timeout (or context cancellation) counts as rejection.
type Console struct {
	Out     io.Writer
	Style   DiffStyle
	Timeout time.Duration
}

// NewConsole returns a console approver writing to stdout.
func NewConsole(style DiffStyle, timeout time.Duration) *Console {
	return &Console{Out: os.Stdout, Style: style, Timeout: timeout}
}

type keyAnswer struct {
	approved bool
	err      error
}

// RequestApproval shows the diff and waits for y (approve) or n/esc/ctrl+c
// (reject).
func (c *Console) RequestApproval(ctx context.Context, preview patch.Preview) (bool, error) {
	fmt.Fprint(c.Out, RenderPreview(preview, c.Style))
	fmt.Fprint(c.Out, "\nApply this change? [y/n] ")

	if err := keyboard.Open(); err != nil {
		return false, fmt.Errorf("open keyboard: %w", err)
	}
	defer keyboard.Close()

	answers := make(chan keyAnswer, 1)
	go func() {
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				answers <- keyAnswer{err: err}
				return
			}
			switch {
			case char == 'y' || char == 'Y':
				answers <- keyAnswer{approved: true}
				return
			case char == 'n' || char == 'N' || key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
				answers <- keyAnswer{approved: false}
				return
			}
		}
	}()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Hour // effectively "wait for the human"
	}

	select {
	case a := <-answers:
		if a.err != nil {
			fmt.Fprintln(c.Out)
			return false, a.err
		}
		if a.approved {
			fmt.Fprintln(c.Out, "y")
		} else {
			fmt.Fprintln(c.Out, "n")
		}
		return a.approved, nil
	case <-ctx.Done():
		fmt.Fprintln(c.Out, "\ncancelled")
		return false, ctx.Err()
	case <-time.After(timeout):
		fmt.Fprintln(c.Out, "\nno answer, treating as rejected")
		return false, nil
	}
}
