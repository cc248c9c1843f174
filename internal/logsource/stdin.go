package logsource

import (
	"bufio"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/tinytelemetry/logstats/internal/model"
)

// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
const DefaultMaxLineSize = model.DefaultMaxLineSize

// StdinConfig holds tunable parameters for the stdin source.
type StdinConfig struct {
	MaxLineSize int
}

// StdinSource reads log lines from stdin, or any reader, one at a time.
// Lines are handed over on an unbuffered channel so nothing is read ahead of
// the consumer beyond the line currently being delivered.
type StdinSource struct {
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewReaderSource creates a StdinSource over r (normally os.Stdin) that
// scans in a background goroutine.
func NewReaderSource(ctx context.Context, r io.Reader, logger *zap.Logger, conf ...StdinConfig) *StdinSource {
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 && conf[0].MaxLineSize > 0 {
		maxLineSize = conf[0].MaxLineSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &StdinSource{
		ch:     make(chan model.IngestEnvelope),
		cancel: cancel,
		logger: logger.Named("logsource"),
	}
	go s.read(ctx, r, maxLineSize)
	return s
}

func (s *StdinSource) read(ctx context.Context, r io.Reader, maxLineSize int) {
	defer close(s.ch)

	scanner := bufio.NewScanner(r)
	initial := 64 * 1024
	if initial > maxLineSize {
		initial = maxLineSize
	}
	scanner.Buffer(make([]byte, initial), maxLineSize)

	// The scan runs on its own goroutine so that Stop closes Lines even while
	// a Read is blocked on a terminal or an idle pipe.
	results := make(chan string)
	go func() {
		defer close(results)
		for scanner.Scan() {
			select {
			case results <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		// Read failures end the stream like EOF does.
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				s.logger.Warn("line exceeded max size, treating as end of input",
					zap.Int("max_line_size", maxLineSize))
				return
			}
			s.logger.Warn("read error, treating as end of input", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-results:
			if !ok {
				return
			}
			select {
			case s.ch <- model.IngestEnvelope{Source: s.Name(), Line: line}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *StdinSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *StdinSource) Stop()                              { s.cancel() }
func (s *StdinSource) Name() string                       { return "stdin" }
