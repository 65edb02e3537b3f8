// Package ipc implements the control socket the daemon exposes for status
// queries. Frames are [opcode LE u32][length LE u32][JSON payload] on a unix
// domain socket.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Control socket opcodes.
const (
	opRequest  = 0
	opResponse = 1
	opError    = 2
)

// maxFrameSize bounds payload allocation on read.
const maxFrameSize = 1 << 20

// connTimeout bounds a single request/response exchange.
const connTimeout = 5 * time.Second

// Status is the daemon state reported over the control socket.
type Status struct {
	Version   string          `json:"version"`
	StartedAt time.Time       `json:"started_at"`
	Player    string          `json:"player"`
	Track     *TrackStatus    `json:"track,omitempty"`
	Queue     QueueStatus     `json:"queue"`
	Backends  []BackendStatus `json:"backends"`
}

// TrackStatus describes the active playback session.
type TrackStatus struct {
	Artist          string `json:"artist"`
	Title           string `json:"title"`
	Album           string `json:"album,omitempty"`
	Playing         bool   `json:"playing"`
	PositionSeconds int    `json:"position_seconds"`
	DurationSeconds int    `json:"duration_seconds"`
	PlayedSeconds   int    `json:"played_seconds"`
	Scrobbled       bool   `json:"scrobbled"`
}

// QueueStatus describes the pending scrobble queue.
type QueueStatus struct {
	Pending int `json:"pending"`
}

// BackendStatus describes one scrobbling service.
type BackendStatus struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Status   string `json:"status"`
	Identity string `json:"identity,omitempty"`
	Error    string `json:"error,omitempty"`
}

type request struct {
	Cmd string `json:"cmd"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StatusFunc produces the current daemon status.
type StatusFunc func() (*Status, error)

// Server answers status queries on a unix socket.
type Server struct {
	path   string
	status StatusFunc
	logger zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a control socket server. Start must be called before
// clients can connect.
func NewServer(path string, status StatusFunc, logger zerolog.Logger) *Server {
	return &Server{
		path:   path,
		status: status,
		logger: logger.With().Str("component", "ipc").Logger(),
	}
}

// Start listens on the socket and serves queries until Close. A stale
// socket file from a previous run is removed first.
func (s *Server) Start() error {
	_ = os.Remove(s.path)

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on control socket: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Debug().Str("path", s.path).Msg("control socket listening")
	go s.acceptLoop(listener)
	return nil
}

// Close stops the server and removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener == nil {
		return nil
	}
	err := listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn().Err(err).Msg("control socket accept failed")
			}
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	_, payload, err := readFrame(conn)
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to read request frame")
		return
	}

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.writeError(conn, "malformed request")
		return
	}

	switch req.Cmd {
	case "status":
		st, err := s.status()
		if err != nil {
			s.writeError(conn, err.Error())
			return
		}
		body, err := json.Marshal(st)
		if err != nil {
			s.writeError(conn, err.Error())
			return
		}
		if err := writeFrame(conn, opResponse, body); err != nil {
			s.logger.Debug().Err(err).Msg("failed to write response frame")
		}
	default:
		s.writeError(conn, fmt.Sprintf("unknown command %q", req.Cmd))
	}
}

func (s *Server) writeError(conn net.Conn, msg string) {
	body, _ := json.Marshal(errorResponse{Error: msg})
	if err := writeFrame(conn, opError, body); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write error frame")
	}
}

// Query connects to the daemon's control socket and fetches its status.
func Query(path string, timeout time.Duration) (*Status, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	body, _ := json.Marshal(request{Cmd: "status"})
	if err := writeFrame(conn, opRequest, body); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	opcode, payload, err := readFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if opcode == opError {
		var resp errorResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("daemon returned an unreadable error")
		}
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	var st Status
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &st, nil
}

// writeFrame sends a control frame: [opcode LE u32][length LE u32][payload].
func writeFrame(conn net.Conn, opcode uint32, payload []byte) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], opcode)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(payload)))
	if _, err := conn.Write(header); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// readFrame reads a control frame, allocating a buffer of the exact size
// declared in the header. Frames above maxFrameSize are rejected.
func readFrame(conn net.Conn) (uint32, []byte, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}
	opcode := binary.LittleEndian.Uint32(header[0:4])
	length := binary.LittleEndian.Uint32(header[4:8])
	if length > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, err
	}
	return opcode, payload, nil
}
