package yamlio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrun/chainrun/pkg/models"
	"github.com/chainrun/chainrun/pkg/testutil"
)

func TestExportImportRoundTrip(t *testing.T) {
	workflow := testutil.CreateTestWorkflow()
	workflow.Components = []*models.Component{
		testutil.CreateTestComponent(
			testutil.WithID("topic-in"),
			testutil.WithName("Orders Topic"),
			testutil.WithType(models.ComponentTypeStreamTopic),
			testutil.WithOrder(1),
			testutil.WithRetry(&models.RetryStrategy{
				Type:             models.StrategyExponential,
				MaxRetries:       4,
				BaseDelaySeconds: 2,
				MaxDelaySeconds:  30,
			}),
		),
		testutil.CreateTestComponent(
			testutil.WithID("queue-out"),
			testutil.WithName("Orders Queue"),
			testutil.WithType(models.ComponentTypeMessageQueue),
			testutil.WithOrder(2),
		),
	}
	workflow.Connections = []*models.Connection{
		testutil.CreateTestConnection("topic-in", "queue-out"),
	}

	out, err := Export(workflow)
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: Orders Topic")

	imported, err := Import(out)
	require.NoError(t, err)

	assert.Equal(t, workflow.ID, imported.ID)
	assert.Equal(t, workflow.Name, imported.Name)
	assert.Equal(t, workflow.ValidationMode, imported.ValidationMode)
	require.Len(t, imported.Components, 2)

	topic := imported.ComponentByID("topic-in")
	require.NotNil(t, topic)
	assert.Equal(t, models.ComponentTypeStreamTopic, topic.Type)
	require.NotNil(t, topic.Retry)
	assert.Equal(t, models.StrategyExponential, topic.Retry.Type)
	assert.Equal(t, 4, topic.Retry.MaxRetries)

	require.Len(t, imported.Connections, 1)
	assert.Equal(t, models.ConnectionTopicToQueue, imported.Connections[0].Type)
	assert.Equal(t, "topic-in", imported.Connections[0].SourceID)
	assert.Equal(t, "queue-out", imported.Connections[0].TargetID)
}

func TestExport_ComponentsInChainOrder(t *testing.T) {
	workflow := testutil.CreateTestWorkflow()
	workflow.Components = []*models.Component{
		testutil.CreateTestComponent(testutil.WithID("second"), testutil.WithOrder(2)),
		testutil.CreateTestComponent(testutil.WithID("first"), testutil.WithOrder(1)),
	}

	out, err := Export(workflow)
	require.NoError(t, err)

	imported, err := Import(out)
	require.NoError(t, err)
	assert.Equal(t, "first", imported.Components[0].ID)
	assert.Equal(t, "second", imported.Components[1].ID)
}

func TestImport_MinimalDocument(t *testing.T) {
	doc := []byte(`
workflow:
  name: Minimal Chain
  components:
    - name: Ping
      type: service
      order: 1
      config:
        url: http://localhost:8080/ping
        method: GET
`)

	imported, err := Import(doc)
	require.NoError(t, err)

	assert.Equal(t, models.ValidationModeOptional, imported.ValidationMode, "validation mode defaults to optional")
	require.Len(t, imported.Components, 1)
	assert.NotEmpty(t, imported.Components[0].ID, "components without ids get generated ones")
	assert.Equal(t, models.ComponentTypeService, imported.Components[0].Type)
}

func TestImport_RetryDefaultsApplied(t *testing.T) {
	doc := []byte(`
workflow:
  name: Retry Chain
  components:
    - name: Flaky Service
      type: service
      order: 1
      config:
        url: http://localhost:8080/flaky
      retry_strategy:
        type: fixed
`)

	imported, err := Import(doc)
	require.NoError(t, err)

	retry := imported.Components[0].Retry
	require.NotNil(t, retry)
	assert.Equal(t, models.DefaultMaxRetries, retry.MaxRetries)
	assert.InDelta(t, models.DefaultBaseDelaySeconds, retry.BaseDelaySeconds, 0.001)
}

func TestImport_NormalizesNestedConfig(t *testing.T) {
	doc := []byte(`
workflow:
  name: Nested Config Chain
  components:
    - name: Writer
      type: database
      order: 1
      config:
        url: postgres://localhost/test
        statement: INSERT INTO events VALUES ($1)
        parameters:
          mapping:
            1: order_id
        tags:
          - ingest
          - orders
`)

	imported, err := Import(doc)
	require.NoError(t, err)

	config := imported.Components[0].Config
	parameters, ok := config["parameters"].(map[string]any)
	require.True(t, ok, "nested maps must decode as map[string]any, got %T", config["parameters"])

	mapping, ok := parameters["mapping"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_id", mapping["1"], "non-string keys are stringified")

	tags, ok := config["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"ingest", "orders"}, tags)
}

func TestImport_Rejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "{{nope"},
		{"no workflow name", "workflow:\n  components: []\n"},
		{
			"unknown validation mode",
			"workflow:\n  name: Bad Mode\n  validation_mode: strict\n  components: []\n",
		},
		{
			"duplicate component order",
			`workflow:
  name: Duplicate Orders
  components:
    - name: One
      type: service
      order: 1
      config: {url: "http://localhost/a"}
    - name: Two
      type: service
      order: 1
      config: {url: "http://localhost/b"}
`,
		},
		{
			"gap in component orders",
			`workflow:
  name: Gapped Orders
  components:
    - name: One
      type: service
      order: 1
      config: {url: "http://localhost/a"}
    - name: Three
      type: service
      order: 3
      config: {url: "http://localhost/b"}
`,
		},
		{
			"connection references missing component",
			`workflow:
  name: Dangling Connection
  components:
    - id: topic-in
      name: Topic
      type: stream-topic
      order: 1
      config: {brokers: "localhost:9092", topic: "t"}
  connections:
    - type: topic_to_queue
      source: {id: topic-in}
      target: {id: nope}
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidWorkflow)
		})
	}
}
