// ABOUTME: Newline-delimited stdio transport for the MCP dispatcher.
// ABOUTME: Requests run concurrently; response frames are written one at a time.

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// StdioServer reads JSON-RPC frames from r and writes responses to w.
type StdioServer struct {
	dispatcher *Dispatcher
	logger     *slog.Logger

	writeMu sync.Mutex
	w       io.Writer
	r       io.Reader
}

// NewStdioServer creates a stdio transport.
func NewStdioServer(d *Dispatcher, r io.Reader, w io.Writer, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{dispatcher: d, logger: logger, r: r, w: w}
}

type frame struct {
	line []byte
	err  error
}

// Serve runs until ctx is cancelled, the input reaches EOF, or the client
// sends exit. It returns nil in the last two cases.
func (s *StdioServer) Serve(ctx context.Context) error {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan frame)
	stop := make(chan struct{})
	defer close(stop)
	go s.read(frames, stop)

	var wg sync.WaitGroup
	// In-flight requests are cancelled before waiting so exit is prompt.
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.dispatcher.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				s.logger.Info("stdin closed")
				return nil
			}
			if f.err != nil {
				return fmt.Errorf("reading stdin: %w", f.err)
			}
			wg.Add(1)
			go func(line []byte) {
				defer wg.Done()
				if out := s.dispatcher.HandleMessage(reqCtx, line); out != nil {
					s.write(out)
				}
			}(f.line)
		}
	}
}

// read splits input into frames until EOF or stop. Blank lines are skipped.
// An oversized frame is answered with an error and discarded; reading goes on
// from the next line.
func (s *StdioServer) read(frames chan<- frame, stop <-chan struct{}) {
	defer close(frames)

	br := bufio.NewReaderSize(s.r, 64*1024)
	for {
		line, tooLong, err := readFrame(br, MaxRequestBodySize)
		if tooLong {
			s.logger.Warn("discarding oversized stdin frame", "limit", MaxRequestBodySize)
			out, _ := json.Marshal(&JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      nullID,
				Error:   &JSONRPCError{Code: JSONRPCInvalidRequest, Message: "request frame too large"},
			})
			s.write(out)
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			select {
			case frames <- frame{line: line}:
			case <-stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case frames <- frame{err: err}:
				case <-stop:
				}
			}
			return
		}
	}
}

// readFrame returns the next line, newline included. A line longer than
// limit is read to its end and dropped, and tooLong is set.
func readFrame(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(bytes.TrimRight(line, "\r\n"))+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

func (s *StdioServer) write(out []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.w.Write(append(out, '\n')); err != nil {
		s.logger.Warn("failed to write response frame", "error", err)
	}
}
