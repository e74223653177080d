// Package unixserver starts httptest servers listening on a unix socket.
package unixserver

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// Start serves handler on a fresh unix socket and returns its path. The
// server and socket directory are removed when the test ends.
func Start(t *testing.T, handler http.Handler) string {
	t.Helper()

	// unix socket paths are limited to ~108 bytes, so avoid t.TempDir's long names.
	dir, err := os.MkdirTemp("", "sunbeam-sock")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	socket := filepath.Join(dir, "api.sock")

	listener, err := net.Listen("unix", socket)
	if err != nil {
		_ = os.RemoveAll(dir)
		t.Fatalf("listen on %s: %v", socket, err)
	}

	server := httptest.NewUnstartedServer(handler)
	_ = server.Listener.Close()
	server.Listener = listener
	server.Start()

	t.Cleanup(func() {
		server.Close()
		_ = os.RemoveAll(dir)
	})
	return socket
}
