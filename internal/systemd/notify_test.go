package systemd

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listenNotify binds a datagram socket and points NOTIFY_SOCKET at it.
func listenNotify(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func readMessage(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read notify message: %v", err)
	}
	return string(buf[:n])
}

func TestNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := NewNotifier(testLogger())

	if n.Ready() {
		t.Error("Ready() reported delivery without NOTIFY_SOCKET")
	}
	if n.Stopping() {
		t.Error("Stopping() reported delivery without NOTIFY_SOCKET")
	}
}

func TestNotifierMessages(t *testing.T) {
	conn := listenNotify(t)
	n := NewNotifier(testLogger())

	if !n.Ready() {
		t.Fatal("Ready() was not delivered")
	}
	if got := readMessage(t, conn); got != "READY=1" {
		t.Errorf("message = %q, want READY=1", got)
	}

	n.Status("relaying 192.168.0.64")
	if got := readMessage(t, conn); got != "STATUS=relaying 192.168.0.64" {
		t.Errorf("message = %q", got)
	}
}

func TestNotifierRunLifecycle(t *testing.T) {
	conn := listenNotify(t)
	t.Setenv("WATCHDOG_USEC", "")
	n := NewNotifier(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	if got := readMessage(t, conn); got != "READY=1" {
		t.Fatalf("first message = %q, want READY=1", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := readMessage(t, conn); got != "STOPPING=1" {
		t.Errorf("last message = %q, want STOPPING=1", got)
	}
}

func TestNotifierRunWatchdog(t *testing.T) {
	conn := listenNotify(t)
	t.Setenv("WATCHDOG_USEC", "100000")
	t.Setenv("WATCHDOG_PID", "")
	n := NewNotifier(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = n.Run(ctx) }()

	if got := readMessage(t, conn); got != "READY=1" {
		t.Fatalf("first message = %q, want READY=1", got)
	}
	if got := readMessage(t, conn); !strings.HasPrefix(got, "WATCHDOG=1") {
		t.Errorf("second message = %q, want WATCHDOG=1", got)
	}
}
