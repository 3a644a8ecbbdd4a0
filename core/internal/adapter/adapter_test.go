package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOperationSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retryOperation(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOperationReturnsLastErrorAfterExhaustingAttempts(t *testing.T) {
	attempts := 0
	err := retryOperation(context.Background(), func() error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, len(retryJitterMillis), attempts)
}

func TestRetryOperationStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := retryOperation(ctx, func() error {
		attempts++
		return errors.New("fails")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func testMockSchema() *schema.CompiledSchema {
	return &schema.CompiledSchema{
		Types: map[string]*schema.TypeDef{
			"User": {
				Name: "User",
				Fields: []schema.Field{
					{Name: "id", Type: schema.FieldType{Kind: schema.KindID}},
					{Name: "name", Type: schema.FieldType{Kind: schema.KindString}},
					{Name: "active", Type: schema.FieldType{Kind: schema.KindBoolean}},
				},
			},
		},
	}
}

func TestMockAdapterGeneratesListOfItems(t *testing.T) {
	m := NewMockAdapter(testMockSchema())
	val := m.GenerateValue(m.Schema.Types["User"], true)
	items, ok := val.([]interface{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(items), 1)
	assert.LessOrEqual(t, len(items), 3)
}

func TestMockAdapterGeneratesSingularItem(t *testing.T) {
	m := NewMockAdapter(testMockSchema())
	val := m.GenerateValue(m.Schema.Types["User"], false)
	item, ok := val.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, item["id"])
	assert.IsType(t, true, item["active"])
}

func TestMockAdapterHealthCheckAlwaysSucceeds(t *testing.T) {
	m := NewMockAdapter(testMockSchema())
	assert.NoError(t, m.HealthCheck(context.Background()))
	assert.Equal(t, Mock, m.DatabaseType())
}
