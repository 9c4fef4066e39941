package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/burntcarrot/waypad/client/session"
	"github.com/burntcarrot/waypad/commons"
	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"
	"github.com/sirupsen/logrus"
)

// handleTermboxEvent handles key input by editing the local session, which sends the change over the WebSocket connection.
func handleTermboxEvent(ev termbox.Event) error {
	// We only want to deal with termbox key events (EventKey).
	if ev.Type != termbox.EventKey {
		return nil
	}

	switch ev.Key {

	// The default keys for exiting an session are Esc and Ctrl+C.
	case termbox.KeyEsc, termbox.KeyCtrlC:
		// Return an error with the prefix "waypad", so that it gets treated as an exit "event".
		return errors.New("waypad: exiting")

	// The default key for saving the editor's contents is Ctrl+S.
	case termbox.KeyCtrlS:
		// If no file name is specified, set filename to "waypad-content.txt"
		if fileName == "" {
			fileName = "waypad-content.txt"
		}

		if err := os.WriteFile(fileName, []byte(sess.Text()), 0644); err != nil { // skipcq: GSC-G306
			e.SetStatusBar("Failed to save to " + fileName)
			logger.Errorf("failed to save to %s: %v", fileName, err)
			return nil
		}
		e.SetStatusBar("Saved document to " + fileName)

	// Ctrl+A selects the whole document.
	case termbox.KeyCtrlA:
		sess.Select(0, sess.Len())

	// Ctrl+X removes the selection.
	case termbox.KeyCtrlX:
		cut, err := sess.Cut()
		reportErr(err)
		if cut != "" {
			e.SetStatusBar(fmt.Sprintf("Cut %d characters", len([]rune(cut))))
		}

	// The default keys for moving left inside the text area are the left arrow key, and Ctrl+B (move backward).
	case termbox.KeyArrowLeft, termbox.KeyCtrlB:
		moveCursor(-1, 0)

	// The default keys for moving right inside the text area are the right arrow key, and Ctrl+F (move forward).
	case termbox.KeyArrowRight, termbox.KeyCtrlF:
		moveCursor(1, 0)

	// The default keys for moving up inside the text area are the up arrow key, and Ctrl+P (move to previous line).
	case termbox.KeyArrowUp, termbox.KeyCtrlP:
		moveCursor(0, -1)

	// The default keys for moving down inside the text area are the down arrow key, and Ctrl+N (move to next line).
	case termbox.KeyArrowDown, termbox.KeyCtrlN:
		moveCursor(0, 1)

	// Home key, moves cursor to the start of the document.
	case termbox.KeyHome:
		sess.Select(0, 0)

	// End key, moves cursor to the end of the document.
	case termbox.KeyEnd:
		sess.Select(sess.Len(), sess.Len())

	// The default key for deleting the character before the cursor is Backspace.
	case termbox.KeyBackspace, termbox.KeyBackspace2:
		reportErr(sess.Backspace())

	// Delete removes the character after the cursor.
	case termbox.KeyDelete:
		reportErr(sess.DeleteForward())

	// The Tab key inserts 4 spaces to simulate a "tab".
	case termbox.KeyTab:
		reportErr(sess.Type("    "))

	// The Enter key inserts a newline character to the editor's content.
	case termbox.KeyEnter:
		reportErr(sess.Type("\n"))

	// The Space key inserts a space character to the editor's content.
	case termbox.KeySpace:
		reportErr(sess.Type(" "))

	// Every other key is eligible to be a candidate for insertion.
	default:
		if ev.Ch != 0 {
			reportErr(sess.Type(string(ev.Ch)))
		}
	}

	syncEditor()
	return nil
}

// moveCursor moves the editor's cursor and anchors the session's selection there.
func moveCursor(x, y int) {
	e.MoveCursor(x, y)
	sess.Select(e.Cursor, e.Cursor)
}

// syncEditor copies the session's text and selection into the editor.
func syncEditor() {
	e.SetText(sess.Text())
	start, end := sess.Selection()
	e.Select(start, end)
}

// reportErr logs a failed edit and shows it in the status bar.
func reportErr(err error) {
	if err == nil {
		return
	}
	logger.Errorf("edit failed: %v", err)
	if errors.Is(err, session.ErrLostConnection) {
		e.SetStatusBar("lost connection!")
		return
	}
	e.SetStatusBar(err.Error())
}

// getTermboxChan returns a channel of termbox Events repeatedly waiting on user input.
func getTermboxChan() chan termbox.Event {
	termboxChan := make(chan termbox.Event)

	go func() {
		for {
			termboxChan <- termbox.PollEvent()
		}
	}()

	return termboxChan
}

// handleMsg updates the session with the contents of the message.
func handleMsg(msg commons.Message) {
	switch msg.Type {
	case commons.JoinMessage:
		e.SetStatusBar(fmt.Sprintf("%s has joined the session!", msg.Username))

	case commons.UsersMessage:
		e.Users = msg.Text

	default:
		if err := sess.ApplyRemote(msg); err != nil {
			logger.Errorf("failed to apply %s: %v", msg.Type, err)
		}
		logger.WithFields(logrus.Fields{
			"type":    msg.Type,
			"records": len(msg.Records),
			"keys":    len(msg.Keys),
		}).Info("REMOTE CHANGE")
	}

	// printDoc is used for debugging purposes.
	// This can be toggled via the `-debug` flag.
	printDoc()

	syncEditor()
}

// getMsgChan returns a message channel that repeatedly reads from a websocket connection.
// The channel is closed when the connection fails.
func getMsgChan(conn *websocket.Conn) chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		defer close(messageChan)
		for {
			var msg commons.Message

			// Read message.
			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				break
			}

			logger.Debugf("message received: %+v\n", msg)

			// send message through channel
			messageChan <- msg
		}
	}()
	return messageChan
}
