package main

import (
	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"
)

// UI creates a new editor view and runs the main loop.
func UI(conn *websocket.Conn) error {
	err := termbox.Init()
	if err != nil {
		return err
	}
	defer termbox.Close()

	e.SetSize(termbox.Size())
	e.Draw()

	return mainLoop(conn)
}

// mainLoop is the main update loop for the UI. It is the only goroutine that
// touches the session and the editor.
func mainLoop(conn *websocket.Conn) error {
	termboxChan := getTermboxChan()
	msgChan := getMsgChan(conn)

	// event select
	for {
		select {
		case termboxEvent := <-termboxChan:
			if termboxEvent.Type == termbox.EventResize {
				e.SetSize(termboxEvent.Width, termboxEvent.Height)
			}
			err := handleTermboxEvent(termboxEvent)
			if err != nil {
				return err
			}
		case msg, ok := <-msgChan:
			if !ok {
				e.SetStatusBar("lost connection!")
				msgChan = nil
				break
			}
			handleMsg(msg)
		}

		e.Draw()
	}
}
