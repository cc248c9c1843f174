package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	logstatsBuildOnce sync.Once
	logstatsBinPath   string
	logstatsBuildErr  error
)

func buildLogstats(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary build in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("signals are not delivered the same way on windows")
	}
	logstatsBuildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "logstats-blackbox-bin-*")
		if err != nil {
			logstatsBuildErr = fmt.Errorf("mktemp bin dir: %w", err)
			return
		}
		logstatsBinPath = filepath.Join(tmpDir, "logstats")

		cmd := exec.Command("go", "build", "-o", logstatsBinPath, ".")
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			logstatsBuildErr = fmt.Errorf("build logstats binary: %w\n%s", err, out.String())
		}
	})
	if logstatsBuildErr != nil {
		t.Fatalf("%v", logstatsBuildErr)
	}
	return logstatsBinPath
}

func startLogstats(t *testing.T) (*exec.Cmd, io.WriteCloser, *syncBuffer) {
	t.Helper()
	bin := buildLogstats(t)

	cmd := exec.Command(bin, "--log-level=debug")
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout := &syncBuffer{}
	cmd.Stdout = stdout
	cmd.Stderr = io.Discard
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return cmd, stdin, stdout
}

func waitExit(t *testing.T, cmd *exec.Cmd) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err, "expected exit status 0")
	case <-time.After(10 * time.Second):
		t.Fatal("logstats did not exit")
	}
}

func TestBlackBox_InterruptPrintsFinalReport(t *testing.T) {
	cmd, stdin, stdout := startLogstats(t)
	defer stdin.Close()

	var input strings.Builder
	for i := 0; i < 10; i++ {
		input.WriteString(accessLine(200, 100))
	}
	input.WriteString("garbage line\n")
	input.WriteString(accessLine(404, 5))
	_, err := io.WriteString(stdin, input.String())
	require.NoError(t, err)

	periodic := "File size: 1000\n200: 10\n"
	waitFor(t, func() bool { return strings.HasPrefix(stdout.String(), periodic) }, "periodic report")
	// Give the 12th line time to be applied; stdin remains open.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))
	waitExit(t, cmd)

	assert.Equal(t, periodic+"File size: 1005\n200: 10\n404: 1\n", stdout.String())
}

func TestBlackBox_EndOfInput(t *testing.T) {
	cmd, stdin, stdout := startLogstats(t)

	_, err := io.WriteString(stdin, accessLine(999, 50)+accessLine(500, 1))
	require.NoError(t, err)
	require.NoError(t, stdin.Close())
	waitExit(t, cmd)

	assert.Equal(t, "File size: 51\n500: 1\n", stdout.String())
}
