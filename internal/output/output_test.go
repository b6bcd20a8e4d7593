package output

import (
	"errors"
	"testing"

	"github.com/atotto/clipboard"
)

type recorder struct {
	texts  []string
	clears int
}

func (r *recorder) SendText(text string, _ bool) { r.texts = append(r.texts, text) }
func (r *recorder) ClearTexts()                  { r.clears++ }

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, b}

	f.SendText("hello", true)
	f.ClearTexts()

	for i, r := range []*recorder{a, b} {
		if len(r.texts) != 1 || r.texts[0] != "hello" {
			t.Errorf("channel %d texts = %v, want [hello]", i, r.texts)
		}
		if r.clears != 1 {
			t.Errorf("channel %d clears = %d, want 1", i, r.clears)
		}
	}
}

func TestClipboardCopiesTranslationsOnly(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("clipboard unsupported on this platform")
	}
	var copied []string
	c := &Clipboard{write: func(s string) error {
		copied = append(copied, s)
		return nil
	}}

	c.SendText("source", false)
	c.SendText("", true)
	c.SendText("перевод", true)

	if len(copied) != 1 || copied[0] != "перевод" {
		t.Errorf("copied = %v, want [перевод]", copied)
	}
}

func TestClipboardWriteErrorIsSwallowed(t *testing.T) {
	c := &Clipboard{write: func(string) error { return errors.New("no display") }}
	c.SendText("x", true)
}
