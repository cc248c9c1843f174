package logsource

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func collect(t *testing.T, src LogSource) []string {
	t.Helper()
	var lines []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-src.Lines():
			if !ok {
				return lines
			}
			assert.Equal(t, "stdin", env.Source)
			lines = append(lines, env.Line)
		case <-timeout:
			t.Fatalf("timed out waiting for lines channel to close, got %q", lines)
		}
	}
}

func TestReaderSourceDeliversLinesInOrder(t *testing.T) {
	t.Parallel()

	src := NewReaderSource(context.Background(), strings.NewReader("a\n\nb\r\nc"), nil)
	assert.Equal(t, []string{"a", "", "b", "c"}, collect(t, src))
}

type errReader struct {
	data string
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestReaderSourceReadErrorEndsStream(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	r := &errReader{data: "first\nsecond\n", err: errors.New("device gone")}

	src := NewReaderSource(context.Background(), r, zap.New(core))
	assert.Equal(t, []string{"first", "second"}, collect(t, src))
	require.Equal(t, 1, logs.FilterMessage("read error, treating as end of input").Len())
}

func TestReaderSourceLineTooLongEndsStream(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	input := "short\n" + strings.Repeat("x", 64) + "\nafter\n"

	src := NewReaderSource(context.Background(), strings.NewReader(input), zap.New(core), StdinConfig{MaxLineSize: 16})
	assert.Equal(t, []string{"short"}, collect(t, src))
	require.Equal(t, 1, logs.FilterMessage("line exceeded max size, treating as end of input").Len())
}

func TestReaderSourceDoesNotReadAhead(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	src := NewReaderSource(context.Background(), r, nil)
	defer src.Stop()

	_, err = io.WriteString(w, "one\n")
	require.NoError(t, err)

	select {
	case env := <-src.Lines():
		assert.Equal(t, "one", env.Line)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first line")
	}

	select {
	case env, ok := <-src.Lines():
		t.Fatalf("unexpected delivery %q (ok=%v) before more input was written", env.Line, ok)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStdinSourceStopClosesLines(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	src := NewReaderSource(context.Background(), r, nil)
	src.Stop()

	select {
	case _, ok := <-src.Lines():
		if ok {
			t.Fatal("expected lines channel to be closed after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lines channel to close")
	}
}

func TestStdinSourceParentCancelClosesLines(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	src := NewReaderSource(ctx, r, nil)
	cancel()

	assert.Empty(t, collect(t, src))
}

func TestStdinSourceStopIsIdempotent(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	src := NewReaderSource(context.Background(), r, nil)
	src.Stop()
	src.Stop()
	assert.Equal(t, "stdin", src.Name())
}
