package server

import (
	"net/http"
	"testing"
	"time"
)

func TestNewFillsDefaults(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), Timeouts{Write: 3 * time.Second})
	if srv.ReadTimeout != DefaultTimeouts.Read {
		t.Fatalf("ReadTimeout = %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 3*time.Second {
		t.Fatalf("WriteTimeout = %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != DefaultTimeouts.Idle {
		t.Fatalf("IdleTimeout = %v", srv.IdleTimeout)
	}
}
