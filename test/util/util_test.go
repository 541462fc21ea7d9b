package util

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
)

type fakeContainer struct {
	tc.Container
	ports map[nat.Port]nat.Port
}

func (fakeContainer) Host(context.Context) (string, error) { return "127.0.0.1", nil }

func (f fakeContainer) MappedPort(_ context.Context, p nat.Port) (nat.Port, error) {
	m, ok := f.ports[p]
	if !ok {
		return "", fmt.Errorf("port %s not exposed", p)
	}
	return m, nil
}

func TestEndpoint(t *testing.T) {
	cont := fakeContainer{ports: map[nat.Port]nat.Port{"1883": "49153/tcp", "8086": "49154/tcp"}}
	for port, want := range map[nat.Port]string{
		"1883": "tcp://127.0.0.1:49153",
		"8086": "tcp://127.0.0.1:49154",
	} {
		got, err := endpoint(context.Background(), cont, port, "tcp")
		if err != nil {
			t.Fatalf("endpoint %s: %v", port, err)
		}
		if got != want {
			t.Fatalf("endpoint %s = %q, want %q", port, got, want)
		}
	}
	if _, err := endpoint(context.Background(), cont, "9999", "http"); err == nil {
		t.Fatal("expected error for unexposed port")
	}
}
