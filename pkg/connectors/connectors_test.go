package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/models"
)

func TestFactoryFor_CoversEveryComponentType(t *testing.T) {
	for _, componentType := range models.ComponentTypes() {
		factory, err := FactoryFor(componentType)
		require.NoError(t, err, "type %s", componentType)
		assert.Equal(t, componentType, factory.Type())
		assert.NotEmpty(t, factory.Name())
		assert.NotEmpty(t, factory.Description())
		assert.NotEmpty(t, factory.Schema())
	}
}

func TestFactoryFor_UnknownType(t *testing.T) {
	_, err := FactoryFor("ftp-server")
	assert.Error(t, err)
}

func TestForComponent_BuildsMatchingConnector(t *testing.T) {
	component := &models.Component{
		ID:   "comp-1",
		Name: "orders queue",
		Type: models.ComponentTypeMessageQueue,
		Config: map[string]any{
			"addr":  "redis-1:6379",
			"queue": "orders",
		},
	}

	connector, err := ForComponent(t.Context(), component)
	require.NoError(t, err)
	assert.Equal(t, models.ComponentTypeMessageQueue, connector.Type())
}

func TestForComponent_ConfigError(t *testing.T) {
	component := &models.Component{
		ID:     "comp-1",
		Name:   "orders queue",
		Type:   models.ComponentTypeMessageQueue,
		Config: map[string]any{},
	}

	_, err := ForComponent(t.Context(), component)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comp-1")
}

func TestValidateConfig(t *testing.T) {
	valid := &models.Component{
		ID:   "comp-1",
		Name: "orders topic",
		Type: models.ComponentTypeStreamTopic,
		Config: map[string]any{
			"brokers": "kafka-1:9092",
			"topic":   "orders",
		},
	}
	assert.NoError(t, ValidateConfig(valid))

	missingRequired := &models.Component{
		ID:     "comp-2",
		Name:   "orders topic",
		Type:   models.ComponentTypeStreamTopic,
		Config: map[string]any{"brokers": "kafka-1:9092"},
	}
	err := ValidateConfig(missingRequired)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comp-2")

	wrongType := &models.Component{
		ID:   "comp-3",
		Name: "orders db",
		Type: models.ComponentTypeDatabase,
		Config: map[string]any{
			"url":     "postgres://db-1/orders",
			"timeout": "soon",
		},
	}
	assert.Error(t, ValidateConfig(wrongType))
}

func TestCatalog_ListsEveryConnector(t *testing.T) {
	entries := Catalog()
	require.Len(t, entries, len(models.ComponentTypes()))

	seen := make(map[models.ComponentType]bool)
	for _, entry := range entries {
		seen[entry.Type] = true
		assert.NotEmpty(t, entry.Name)
		assert.NotEmpty(t, entry.Schema["properties"])
	}

	for _, componentType := range models.ComponentTypes() {
		assert.True(t, seen[componentType], "catalog missing %s", componentType)
	}
}
