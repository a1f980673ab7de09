package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chatline/protocol"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8089"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects, pumps stdin lines to the server and prints every received
// frame until a terminal marker or a stream error ends the session. The
// client has no protocol logic beyond recognizing the markers.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	conn, err := net.Dial("tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Debug("Closing connection...")
		_ = conn.Close()
	}()

	color.Green.Printf("Connected to %s\n", config.ServerAddress)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := protocol.WriteFrame(conn, line); err != nil {
				return
			}
			if line == protocol.CmdExit {
				_ = conn.Close()
				return
			}
		}
	}()

	if err := receiveLoop(conn); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func receiveLoop(conn net.Conn) error {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			if err == io.EOF || strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		switch {
		case frame == protocol.MarkerKicked:
			color.Red.Println("You have been kicked from the server")
			return nil
		case frame == protocol.MarkerInactive:
			color.Yellow.Println("You have been disconnected due to inactivity")
			return nil
		case frame == protocol.MarkerBanned:
			color.Red.Println("You have been banned from the server")
			return nil
		case strings.HasPrefix(frame, protocol.MarkerTempBanned):
			minutes := strings.TrimSpace(strings.TrimPrefix(frame, protocol.MarkerTempBanned))
			color.Red.Printf("You have been banned for %s minutes\n", minutes)
			return nil
		case frame == protocol.MarkerShutdown:
			color.Yellow.Println("Server is shutting down")
			return nil
		case strings.Contains(frame, "] Server:"):
			color.Cyan.Println(frame)
		default:
			fmt.Println(frame)
		}
	}
}
