package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultMaxLineBytes caps a single request line at 1 MiB.
const DefaultMaxLineBytes = 1 << 20

// Logger records diagnostics. It matches logging.Logger's signature; stdout
// is reserved for protocol envelopes, so diagnostics always go elsewhere.
type Logger interface {
	Printf(format string, args ...any)
}

// Journal receives one entry per dispatched request.
type Journal interface {
	Record(method string, errCode int, elapsed time.Duration)
}

// Server runs the line-oriented protocol loop: one request line in, one
// response line out, strictly in order, until the input stream closes.
type Server struct {
	dispatcher   *Dispatcher
	in           io.Reader
	out          io.Writer
	logger       Logger
	journal      Journal
	maxLineBytes int
	clock        func() time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithIO overrides the default stdin/stdout streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		if in != nil {
			s.in = in
		}
		if out != nil {
			s.out = out
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJournal attaches a request journal.
func WithJournal(j Journal) Option {
	return func(s *Server) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithMaxLineBytes overrides the request line size limit.
func WithMaxLineBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLineBytes = n
		}
	}
}

// WithClock allows tests to control journal timing.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a protocol loop over the given dispatcher.
func NewServer(dispatcher *Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher:   dispatcher,
		in:           os.Stdin,
		out:          os.Stdout,
		logger:       nopLogger{},
		maxLineBytes: DefaultMaxLineBytes,
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// errLineTooLong marks a request line past maxLineBytes. The line is
// consumed in full so the stream stays aligned on line boundaries.
var errLineTooLong = errors.New("request line too long")

// Serve reads request lines until EOF. Empty lines are skipped silently; a
// malformed or oversized line produces one parse-error response with a null
// id and the loop continues. Serve returns nil on clean EOF. Context
// cancellation is checked between lines; a blocked read is the
// orchestrator's problem, it owns the process.
func (s *Server) Serve(ctx context.Context) error {
	reader := bufio.NewReaderSize(s.in, 64*1024)
	for {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := s.readLine(reader)
		if errors.Is(err, errLineTooLong) {
			s.logger.Printf("rpc: request line exceeds %d bytes, dropped", s.maxLineBytes)
			s.write(Failure(nil, CodeParseError, fmt.Sprintf("Parse error: request line exceeds %d bytes", s.maxLineBytes)))
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("rpc: read request stream: %w", err)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			s.serveLine(trimmed)
		}
		if err != nil {
			return nil
		}
	}
}

// readLine returns one input line without its terminator. An io.EOF return
// may still carry a final unterminated line.
func (s *Server) readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			if len(line) > s.maxLineBytes {
				return nil, s.drainLine(r)
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > s.maxLineBytes {
			return nil, errLineTooLong
		}
		return line, err
	}
}

// drainLine discards the remainder of an oversized line so the next read
// starts on a fresh line.
func (s *Server) drainLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return errLineTooLong
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

func (s *Server) serveLine(line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Printf("rpc: invalid request line: %v", err)
		s.write(Failure(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err)))
		return
	}

	started := s.clock()
	resp := s.dispatcher.Dispatch(req)
	if s.journal != nil {
		code := 0
		if resp.Error != nil {
			code = resp.Error.Code
		}
		s.journal.Record(req.Method, code, s.clock().Sub(started))
	}
	if resp.Error != nil {
		s.logger.Printf("rpc: %s failed: [%d] %s", req.Method, resp.Error.Code, resp.Error.Message)
	}
	s.write(resp)
}

// write emits exactly one envelope line. A result the encoder cannot
// serialize is downgraded to a handler error so the request still gets its
// one response.
func (s *Server) write(resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Printf("rpc: encode response: %v", err)
		fallback := Failure(resp.ID, CodeHandlerError, fmt.Sprintf("response not serializable: %v", err))
		payload, err = json.Marshal(fallback)
		if err != nil {
			// The id itself is unserializable; answer with a null id rather
			// than dropping the response entirely.
			payload, _ = json.Marshal(Failure(nil, CodeHandlerError, "response not serializable"))
		}
	}
	if _, err := s.out.Write(append(payload, '\n')); err != nil {
		s.logger.Printf("rpc: write response: %v", err)
	}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
