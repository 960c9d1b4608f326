package engine_test

// Helpers for driving a *repl.REPL end to end through its Run loop,
// reused by every REPL-facing test in this package.

import (
	"io"
	"strings"
	"testing"
	"time"

	"dinodb/pkg/repl"
	"dinodb/test/utils"

	"github.com/google/uuid"
)

const replTimeout = 20 * time.Millisecond
const outputChannelBufferSize = 10_000

func startRepl(t *testing.T, r *repl.REPL) (input io.Writer, output <-chan string) {
	inputPReader, inputPWriter := io.Pipe()
	utils.EnsureCleanup(t, func() { _ = inputPWriter.Close() })
	outputPReader, outputPWriter := io.Pipe()

	go func() {
		r.Run(uuid.New(), "", inputPReader, outputPWriter)
		_ = outputPWriter.Close()
	}()

	outputCh := make(chan string, outputChannelBufferSize)
	go func() {
		for {
			buf := make([]byte, 1024)
			n, err := outputPReader.Read(buf)
			if n != 0 {
				outputCh <- string(buf[:n])
			}
			if err != nil {
				break
			}
		}
		close(outputCh)
	}()

	_ = getAllOutput(outputCh) // skip the welcome banner
	return inputPWriter, outputCh
}

func getAllOutput(outputCh <-chan string) string {
	timer := time.NewTimer(replTimeout)
	sb := new(strings.Builder)
	for {
		select {
		case line := <-outputCh:
			sb.WriteString(line)
		case <-timer.C:
			return sb.String()
		}
	}
}
