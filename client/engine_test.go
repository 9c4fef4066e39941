package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/burntcarrot/waypad/client/editor"
	"github.com/burntcarrot/waypad/client/session"
	"github.com/burntcarrot/waypad/commons"
	"github.com/burntcarrot/waypad/crdt"
	"github.com/burntcarrot/waypad/store"
	"github.com/google/go-cmp/cmp"
	"github.com/nsf/termbox-go"
	"github.com/sirupsen/logrus"
)

// setupOffline points the client globals at an offline session.
func setupOffline(t *testing.T) {
	t.Helper()

	src, err := crdt.NewPositionSource(crdt.WithReplicaID("aaaaaaaaaa"))
	if err != nil {
		t.Fatal(err)
	}

	logger = logrus.New()
	logger.SetOutput(io.Discard)
	flags = Flags{}
	fileName = filepath.Join(t.TempDir(), "out.txt")

	sess = session.New(src, nil, logger)
	t.Cleanup(sess.Close)
	e = editor.NewEditor(editor.EditorConfig{})
}

func key(k termbox.Key) termbox.Event {
	return termbox.Event{Type: termbox.EventKey, Key: k}
}

func char(r rune) termbox.Event {
	return termbox.Event{Type: termbox.EventKey, Ch: r}
}

func TestHandleTermboxEvent(t *testing.T) {
	setupOffline(t)

	tests := []struct {
		description string
		ev          termbox.Event
		text        string
		cursor      int
	}{
		{"type h", char('h'), "h", 1},
		{"type i", char('i'), "hi", 2},
		{"space", key(termbox.KeySpace), "hi ", 3},
		{"type x", char('x'), "hi x", 4},
		{"left", key(termbox.KeyArrowLeft), "hi x", 3},
		{"backspace", key(termbox.KeyBackspace2), "hix", 2},
		{"delete", key(termbox.KeyDelete), "hi", 2},
		{"home", key(termbox.KeyHome), "hi", 0},
		{"enter", key(termbox.KeyEnter), "\nhi", 1},
		{"ctrl+f", key(termbox.KeyCtrlF), "\nhi", 2},
		{"up", key(termbox.KeyArrowUp), "\nhi", 0},
		{"end", key(termbox.KeyEnd), "\nhi", 3},
		{"tab", key(termbox.KeyTab), "\nhi    ", 7},
		{"resize is ignored", termbox.Event{Type: termbox.EventResize}, "\nhi    ", 7},
	}

	for _, tc := range tests {
		if err := handleTermboxEvent(tc.ev); err != nil {
			t.Fatalf("(%s) unexpected error: %v", tc.description, err)
		}

		got := []interface{}{sess.Text(), e.Cursor}
		expected := []interface{}{tc.text, tc.cursor}
		if !cmp.Equal(got, expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.description, cmp.Diff(got, expected))
		}
		if string(e.Text) != sess.Text() {
			t.Errorf("(%s) editor out of sync: %q", tc.description, string(e.Text))
		}
	}
}

func TestHandleTermboxEvent_CutAndSave(t *testing.T) {
	setupOffline(t)

	for _, r := range "hello" {
		if err := handleTermboxEvent(char(r)); err != nil {
			t.Fatal(err)
		}
	}

	if err := handleTermboxEvent(key(termbox.KeyCtrlS)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatal(err)
	}
	if got, expected := string(data), "hello"; got != expected {
		t.Errorf("saved %q, expected %q", got, expected)
	}

	_ = handleTermboxEvent(key(termbox.KeyCtrlA))
	if start, end := e.Selection(); start != 0 || end != 5 {
		t.Errorf("selection = [%d, %d), expected [0, 5)", start, end)
	}

	_ = handleTermboxEvent(key(termbox.KeyCtrlX))
	if got := sess.Text(); got != "" {
		t.Errorf("text after cut = %q", got)
	}
	if got, expected := e.StatusMsg(), "Cut 5 characters"; got != expected {
		t.Errorf("status = %q, expected %q", got, expected)
	}
}

func TestHandleTermboxEvent_Exit(t *testing.T) {
	setupOffline(t)

	for _, k := range []termbox.Key{termbox.KeyEsc, termbox.KeyCtrlC} {
		err := handleTermboxEvent(key(k))
		if err == nil || !strings.HasPrefix(err.Error(), "waypad") {
			t.Errorf("key %v: got %v, expected an exit error", k, err)
		}
	}
}

func TestHandleMsg(t *testing.T) {
	setupOffline(t)

	_ = handleTermboxEvent(char('a'))

	other, err := crdt.NewPositionSource(crdt.WithReplicaID("bbbbbbbbbb"))
	if err != nil {
		t.Fatal(err)
	}
	rec := store.NewRecord(other.CreateBetween(sess.Positions()[0], crdt.Last), "b")

	handleMsg(commons.Message{Type: commons.InsertMessage, Records: []store.Record{rec}})
	if got, expected := string(e.Text), "ab"; got != expected {
		t.Errorf("text = %q, expected %q", got, expected)
	}
	// The cursor stays after "a".
	if got := e.Cursor; got != 1 {
		t.Errorf("cursor = %d, expected 1", got)
	}

	handleMsg(commons.Message{Type: commons.UsersMessage, Text: "alice, bob"})
	if got, expected := e.Users, "alice, bob"; got != expected {
		t.Errorf("users = %q, expected %q", got, expected)
	}

	handleMsg(commons.Message{Type: commons.JoinMessage, Username: "bob"})
	if got, expected := e.StatusMsg(), "bob has joined the session!"; got != expected {
		t.Errorf("status = %q, expected %q", got, expected)
	}

	handleMsg(commons.Message{Type: commons.DeleteMessage, Keys: []string{rec.Key}})
	if got, expected := string(e.Text), "a"; got != expected {
		t.Errorf("text = %q, expected %q", got, expected)
	}
}
