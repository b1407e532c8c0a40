package hotkey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode"

	hook "github.com/robotn/gohook"
)

// Detect streams the raw code of every key press to out until ctx is done.
// The hotkey config section wants numeric codes, and this is how users find
// them for keys without an obvious mapping (function and media keys).
func Detect(ctx context.Context, out io.Writer) error {
	events := hook.Start()
	defer hook.End()

	fmt.Fprintln(out, "press keys to see their codes (ctrl-c to finish)")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("keyboard hook event stream closed; accessibility/input permission may be missing")
			}
			if ev.Kind != hook.KeyDown {
				continue
			}
			fmt.Fprintln(out, describeKey(ev.Rawcode, ev.Keychar))
		}
	}
}

// describeKey renders one press for the detect listing, including the
// character only when it is printable.
func describeKey(rawcode uint16, keychar rune) string {
	if keychar != 0 && unicode.IsPrint(keychar) && keychar != ' ' {
		return fmt.Sprintf("rawcode=%d key=%q", rawcode, keychar)
	}
	return fmt.Sprintf("rawcode=%d", rawcode)
}
