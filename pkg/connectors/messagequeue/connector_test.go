package messagequeue

import (
	"errors"
	"testing"

	"github.com/chainrun/chainrun/pkg/models"
)

func TestNewConnector_ParsesConfig(t *testing.T) {
	component := &models.Component{
		ID:   "comp-1",
		Name: "orders queue",
		Type: models.ComponentTypeMessageQueue,
		Config: map[string]any{
			"addr":     "redis-1:6379",
			"queue":    "orders.incoming",
			"password": "secret",
			"db":       float64(2),
			"timeout":  float64(5),
		},
	}

	connector, err := NewConnector(component)
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	if connector.config.Addr != "redis-1:6379" {
		t.Errorf("Expected addr 'redis-1:6379', got: %q", connector.config.Addr)
	}

	if connector.config.Queue != "orders.incoming" {
		t.Errorf("Expected queue 'orders.incoming', got: %q", connector.config.Queue)
	}

	if connector.config.DB != 2 {
		t.Errorf("Expected db 2, got: %d", connector.config.DB)
	}

	if connector.Type() != models.ComponentTypeMessageQueue {
		t.Errorf("Unexpected connector type: %s", connector.Type())
	}
}

func TestNewConnector_Defaults(t *testing.T) {
	component := &models.Component{
		ID:     "comp-1",
		Name:   "orders queue",
		Type:   models.ComponentTypeMessageQueue,
		Config: map[string]any{"queue": "orders"},
	}

	connector, err := NewConnector(component)
	if err != nil {
		t.Fatalf("Failed to create connector: %v", err)
	}

	if connector.config.Addr != "localhost:6379" {
		t.Errorf("Expected default addr, got: %q", connector.config.Addr)
	}

	if connector.config.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got: %d", connector.config.Timeout)
	}
}

func TestNewConnector_MissingQueue(t *testing.T) {
	component := &models.Component{
		ID:     "comp-1",
		Name:   "orders queue",
		Type:   models.ComponentTypeMessageQueue,
		Config: map[string]any{"addr": "redis-1:6379"},
	}

	if _, err := NewConnector(component); err == nil {
		t.Error("Expected config error for missing queue")
	}
}

func TestClassifyQueueError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		signal models.FailureSignal
	}{
		{name: "auth required", err: errors.New("NOAUTH Authentication required"), signal: models.SignalPermanentConfig},
		{name: "wrong password", err: errors.New("WRONGPASS invalid username-password pair"), signal: models.SignalPermanentConfig},
		{name: "wrong key type", err: errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), signal: models.SignalPermanentData},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), signal: models.SignalTransientConnectivity},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classified := classifyQueueError(tc.err)

			var attemptErr *models.AttemptError
			if !errors.As(classified, &attemptErr) {
				t.Fatalf("Expected AttemptError, got: %T", classified)
			}

			if attemptErr.Signal != tc.signal {
				t.Errorf("Expected signal %s, got: %s", tc.signal, attemptErr.Signal)
			}
		})
	}
}
