package e2e

import (
	"context"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"

	"chatline/moderation"
	"chatline/observability"
	"chatline/protocol"
	"chatline/repositories"
	"chatline/runtime/workers"
	"chatline/server"
)

// BaseChatSuite boots a full in-process chat server (badger store, registry,
// accept loop under the supervisor) unless CHAT_SERVER_ADDR points at an
// external one, and provides frame-level client helpers.
type BaseChatSuite struct {
	suite.Suite
	Config   Config
	Registry *server.Registry

	addr       string
	db         *badger.DB
	dbDir      string
	supervisor *workers.Supervisor
	runDone    chan struct{}
}

func (s *BaseChatSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg

	if cfg.ServerAddr != "" {
		s.addr = cfg.ServerAddr
		return
	}

	log := slog.Default()

	s.dbDir, err = os.MkdirTemp("", "chatline-e2e-*")
	s.Require().NoError(err)
	s.db, err = badger.Open(badger.DefaultOptions(s.dbDir).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)

	store := repositories.NewUserRepository(s.db, log, cfg.AdminLogin)
	stats := observability.NewChatStats()
	censor, err := moderation.NewModerator([]string{"script-kiddie"}, '*')
	s.Require().NoError(err)

	s.Registry = server.NewRegistry(log, store, stats)
	chatServer := server.NewServer(log, "127.0.0.1:0", s.Registry, store, censor, stats, time.Minute)

	s.supervisor = workers.NewSupervisor(log, 100*time.Millisecond)
	s.supervisor.Add(chatServer, workers.NewBanSweeper(log, store, time.Second))

	s.runDone = make(chan struct{})
	go func() {
		s.supervisor.Run(context.Background())
		close(s.runDone)
	}()

	s.Require().Eventually(func() bool {
		s.addr = chatServer.BoundAddr()
		return s.addr != ""
	}, 5*time.Second, 20*time.Millisecond, "server never started listening")
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.supervisor != nil {
		s.supervisor.Stop()
		select {
		case <-s.runDone:
		case <-time.After(5 * time.Second):
			s.T().Log("supervisor did not stop in time")
		}
	}
	if s.db != nil {
		s.Require().NoError(s.db.Close())
	}
	if s.dbDir != "" {
		s.Require().NoError(os.RemoveAll(s.dbDir))
	}
}

// chatClient is one TCP connection speaking the framed protocol, with a
// background reader collecting frames.
type chatClient struct {
	conn   net.Conn
	frames chan string
}

// Dial connects a fresh client and consumes the greeting.
func (s *BaseChatSuite) Dial() *chatClient {
	conn, err := net.DialTimeout("tcp", s.addr, 5*time.Second)
	s.Require().NoError(err)

	client := &chatClient{conn: conn, frames: make(chan string, 64)}
	go func() {
		defer close(client.frames)
		for {
			frame, err := protocol.ReadFrame(conn)
			if err != nil {
				return
			}
			client.frames <- frame
		}
	}()

	s.Expect(client, "please login")
	return client
}

func (s *BaseChatSuite) Send(client *chatClient, text string) {
	s.Require().NoError(protocol.WriteFrame(client.conn, text))
}

// Expect reads frames until one contains the substring.
func (s *BaseChatSuite) Expect(client *chatClient, substring string) string {
	s.T().Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-client.frames:
			if !ok {
				s.Require().FailNowf("connection closed", "while waiting for %q", substring)
			}
			if strings.Contains(frame, substring) {
				return frame
			}
		case <-deadline:
			s.Require().FailNowf("timeout", "no frame containing %q", substring)
		}
	}
}

// ExpectClosed waits until the server has dropped the connection.
func (s *BaseChatSuite) ExpectClosed(client *chatClient) {
	s.T().Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-client.frames:
			if !ok {
				return
			}
		case <-deadline:
			s.Require().FailNow("connection was not closed")
		}
	}
}

func (s *BaseChatSuite) CloseClient(client *chatClient) {
	_ = client.conn.Close()
}
