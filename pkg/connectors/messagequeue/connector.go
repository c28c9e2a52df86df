// Package messagequeue provides the message queue connector for chain execution.
package messagequeue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainrun/chainrun/pkg/models"
)

// Connector pushes a configured message onto a queue to exercise the
// integration end to end.
type Connector struct {
	config Config
}

// Config defines the connection settings for a message queue component.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
	Message  string
	Timeout  int
}

// NewConnector parses the component config and builds a message queue
// connector.
func NewConnector(component *models.Component) (*Connector, error) {
	config := Config{
		Addr:    "localhost:6379",
		Message: "chainrun connectivity check",
		Timeout: 30,
	}

	if addr, ok := component.Config["addr"].(string); ok && addr != "" {
		config.Addr = addr
	}

	if queue, ok := component.Config["queue"].(string); ok && queue != "" {
		config.Queue = queue
	} else {
		return nil, errors.New("missing required field 'queue'")
	}

	if password, ok := component.Config["password"].(string); ok {
		config.Password = password
	}

	if db, ok := component.Config["db"].(float64); ok {
		config.DB = int(db)
	}

	if message, ok := component.Config["message"].(string); ok && message != "" {
		config.Message = message
	}

	if timeout, ok := component.Config["timeout"].(float64); ok {
		config.Timeout = int(timeout)
	}

	return &Connector{config: config}, nil
}

// Type returns the component type this connector serves.
func (c *Connector) Type() models.ComponentType {
	return models.ComponentTypeMessageQueue
}

// Execute connects to the queue backend and pushes one message.
func (c *Connector) Execute(ctx context.Context) (map[string]any, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.config.Addr,
		Password: c.config.Password,
		DB:       c.config.DB,
	})

	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, classifyQueueError(fmt.Errorf("connect to queue backend: %w", err))
	}

	length, err := client.RPush(ctx, c.config.Queue, c.config.Message).Result()
	if err != nil {
		return nil, classifyQueueError(fmt.Errorf("push to queue %q: %w", c.config.Queue, err))
	}

	return map[string]any{
		"queue":  c.config.Queue,
		"length": length,
	}, nil
}

// classifyQueueError maps backend replies onto failure signals.
// Authentication replies and type clashes on the queue key will not fix
// themselves on retry.
func classifyQueueError(err error) error {
	message := err.Error()

	switch {
	case strings.Contains(message, "NOAUTH"), strings.Contains(message, "WRONGPASS"):
		return models.NewAttemptError(models.SignalPermanentConfig, err)
	case strings.Contains(message, "WRONGTYPE"):
		return models.NewAttemptError(models.SignalPermanentData, err)
	default:
		return models.NewAttemptError(models.SignalTransientConnectivity, err)
	}
}
