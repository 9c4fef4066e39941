package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Flags represents the command-line flags that are passed to waypad's client.
type Flags struct {
	Server   string `yaml:"server"`
	Secure   bool   `yaml:"secure"`
	Login    bool   `yaml:"login"`
	File     string `yaml:"file"`
	Debug    bool   `yaml:"debug"`
	Username string `yaml:"username"`
}

// parseFlags parses command-line flags. Settings from the -config file apply
// unless the same flag is given explicitly.
func parseFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("waypad", flag.ContinueOnError)

	serverAddr := fs.String("server", "localhost:8080", "The network address of the server")
	useSecureConn := fs.Bool("secure", false, "Enable a secure WebSocket connection (wss://)")
	enableDebug := fs.Bool("debug", false, "Enable debugging mode to show more verbose logs")
	enableLogin := fs.Bool("login", false, "Enable the login prompt for the server")
	file := fs.String("file", "", "The file to save the waypad content to")
	username := fs.String("username", "", "The name shown to other users")
	configPath := fs.String("config", "", "A YAML file with default settings")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	flags := Flags{
		Server:   *serverAddr,
		Secure:   *useSecureConn,
		Debug:    *enableDebug,
		Login:    *enableLogin,
		File:     *file,
		Username: *username,
	}
	if *configPath == "" {
		return flags, nil
	}

	conf, err := loadConfig(*configPath, flags)
	if err != nil {
		return Flags{}, err
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			conf.Server = flags.Server
		case "secure":
			conf.Secure = flags.Secure
		case "debug":
			conf.Debug = flags.Debug
		case "login":
			conf.Login = flags.Login
		case "file":
			conf.File = flags.File
		case "username":
			conf.Username = flags.Username
		}
	})
	return conf, nil
}

// loadConfig reads a YAML config file on top of defaults.
func loadConfig(path string, defaults Flags) (Flags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Flags{}, fmt.Errorf("failed to read config: %w", err)
	}

	conf := defaults
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return Flags{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return conf, nil
}

// createConn creates a WebSocket connection.
func createConn(flags Flags) (*websocket.Conn, *http.Response, error) {
	var u url.URL
	if flags.Secure {
		u = url.URL{Scheme: "wss", Host: flags.Server, Path: "/"}
	} else {
		u = url.URL{Scheme: "ws", Host: flags.Server, Path: "/"}
	}

	// Get WebSocket connection.
	dialer := websocket.Dialer{
		HandshakeTimeout: 2 * time.Minute,
	}

	return dialer.Dial(u.String(), nil)
}

// ensureDirExists ensures that a directory exists, and if it isn't present, it tries to create a new one.
func ensureDirExists(path string) (bool, error) {
	// Check if the directory exists
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	// Create the directory
	err := os.Mkdir(path, 0700)
	if err != nil {
		return false, err
	}

	return true, nil
}

// setupLogger initializes the client's logger (logrus).
func setupLogger(logger *logrus.Logger) (*os.File, *os.File, error) {
	logPath := "waypad.log"
	debugLogPath := "waypad-debug.log"

	// Keep the logs under ~/.waypad when there is a home directory.
	if homeDir, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(homeDir, ".waypad")
		if ok, err := ensureDirExists(dir); err != nil {
			return nil, nil, err
		} else if ok {
			logPath = filepath.Join(dir, logPath)
			debugLogPath = filepath.Join(dir, debugLogPath)
		}
	}

	// Open the log file and create if it does not exist.
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create a separate log file for verbose logs.
	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		logFile.Close()
		return nil, nil, fmt.Errorf("failed to open debug log file: %w", err)
	}

	configureLogger(logger, logFile, debugLogFile)
	return logFile, debugLogFile, nil
}

// configureLogger sends warnings and errors to w, and everything else to debug.
func configureLogger(logger *logrus.Logger, w, debug io.Writer) {
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if flags.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.AddHook(&writer.Hook{
		Writer: w,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debug,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})
}

// closeLogFiles closes the log files created by the client.
// closeLogFiles is meant to be used for defer calls.
func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}

// printDoc "prints" the document state to the logs.
func printDoc() {
	if !flags.Debug {
		return
	}

	logger.Debugf("---DOCUMENT STATE---")
	for i, pos := range sess.Positions() {
		logger.Debugf("index: %v  position: %s", i, pos)
	}
}
