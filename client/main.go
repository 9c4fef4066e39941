package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/burntcarrot/waypad/client/editor"
	"github.com/burntcarrot/waypad/client/session"
	"github.com/burntcarrot/waypad/commons"
	"github.com/burntcarrot/waypad/crdt"
	"github.com/burntcarrot/waypad/tui"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	// Local session over the shared document.
	sess *session.Session

	// termbox-based editor.
	e *editor.Editor

	// The name of the file to save the editor content to.
	fileName string

	// Parsed flags.
	flags Flags

	logger = logrus.New()
)

func main() {
	var err error
	flags, err = parseFlags(os.Args[1:])
	if err != nil {
		color.Red("%s", err)
		os.Exit(2)
	}
	fileName = flags.File

	// Set up the logger before anything else can fail.
	logFile, debugLogFile, err := setupLogger(logger)
	if err != nil {
		color.Red("Logger error, exiting: %s", err)
		return
	}
	defer closeLogFiles(logFile, debugLogFile)

	name := flags.Username
	if flags.Login || name == "" {
		name, err = tui.Login(name)
		if err != nil {
			color.Red("Login error, exiting: %s", err)
			return
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "anonymous"
	}

	// Get WebSocket connection.
	conn, _, err := createConn(flags)
	if err != nil {
		color.Red("Connection error, exiting: %s", err)
		return
	}
	defer conn.Close()

	source, err := crdt.NewPositionSource()
	if err != nil {
		color.Red("Failed to create a replica ID, exiting: %s", err)
		return
	}
	logger.WithField("replica", source.ReplicaID()).Info("STARTING SESSION")

	sess = session.New(source, conn, logger)
	defer sess.Close()

	// Send joining message.
	msg := commons.Message{Username: name, Text: "has joined the session.", Type: commons.JoinMessage}
	if err := conn.WriteJSON(msg); err != nil {
		logger.Errorf("failed to send join message: %v", err)
	}

	e = editor.NewEditor(editor.EditorConfig{ScrollEnabled: true})

	err = UI(conn)
	if err != nil {
		// Errors prefixed with "waypad" are exit events, not failures.
		if strings.HasPrefix(err.Error(), "waypad") {
			fmt.Println("exiting session.")
			return
		}
		logger.Errorf("TUI error, exiting: %v", err)
		color.Red("TUI error, exiting: %s", err)
	}
}
