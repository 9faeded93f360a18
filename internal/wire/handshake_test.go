package wire

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerHandshakeAcceptsExternalAuthUnconditionally(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	client.SetDeadline(time.Now().Add(time.Second))
	server.SetDeadline(time.Now().Add(time.Second))

	done := make(chan error, 1)
	go func() { done <- serverHandshake(server) }()

	_, err := client.Write([]byte("\x00AUTH EXTERNAL 31303030\r\n"))
	require.NoError(t, err)

	reply := readLineFromClient(t, client)
	assert.Regexp(t, `^OK [0-9a-f]{32}$`, reply)

	_, err = client.Write([]byte("BEGIN\r\n"))
	require.NoError(t, err)

	require.NoError(t, <-done)
}

func TestServerHandshakeRejectsUnknownCommand(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	client.SetDeadline(time.Now().Add(time.Second))
	server.SetDeadline(time.Now().Add(time.Second))

	done := make(chan error, 1)
	go func() { done <- serverHandshake(server) }()

	_, err := client.Write([]byte("\x00AUTH ANONYMOUS\r\n"))
	require.NoError(t, err)

	err = <-done
	assert.Error(t, err)
}

func readLineFromClient(t *testing.T, conn net.Conn) string {
	t.Helper()
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := conn.Read(b)
		require.NoError(t, err)
		if n == 0 {
			continue
		}
		if b[0] == '\n' {
			break
		}
		line = append(line, b[0])
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return string(line)
}
