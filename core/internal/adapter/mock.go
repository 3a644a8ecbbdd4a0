package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/fraiseql/fraiseql-sub006/core/internal/schema"
)

// MockAdapter stands in for a database without a live connection: Execute,
// ExecuteScalar and ExecuteMutation return no rows, and GenerateValue
// fabricates plausible values from a type's declared fields on request.
// Statements run through it do not get fabricated rows.
type MockAdapter struct {
	Schema *schema.CompiledSchema
	Rand   *rand.Rand
}

func NewMockAdapter(cs *schema.CompiledSchema) *MockAdapter {
	return &MockAdapter{Schema: cs, Rand: rand.New(rand.NewSource(1))}
}

func (m *MockAdapter) Execute(_ context.Context, _ string, _ []interface{}) ([]Row, error) {
	return nil, nil
}

func (m *MockAdapter) ExecuteScalar(_ context.Context, _ string, _ []interface{}) ([]byte, bool, error) {
	return nil, false, nil
}

func (m *MockAdapter) ExecuteMutation(_ context.Context, _ string, _ []interface{}) ([]Row, error) {
	return nil, nil
}

func (m *MockAdapter) HealthCheck(context.Context) error { return nil }
func (m *MockAdapter) DatabaseType() DatabaseType        { return Mock }
func (m *MockAdapter) PoolMetrics() PoolMetrics          { return PoolMetrics{OpenConnections: 1, Idle: 1} }
func (m *MockAdapter) Close() error                      { return nil }

// GenerateValue fabricates a value for td, honoring IsList: a list type
// gets between one and three generated items, a singular type gets one.
func (m *MockAdapter) GenerateValue(td *schema.TypeDef, isList bool) interface{} {
	if !isList {
		return m.generateItem(td, 0)
	}
	count := 1 + m.Rand.Intn(3)
	items := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, m.generateItem(td, i))
	}
	return items
}

func (m *MockAdapter) generateItem(td *schema.TypeDef, idx int) map[string]interface{} {
	item := make(map[string]interface{}, len(td.Fields))
	for _, f := range td.Fields {
		item[f.Name] = m.fieldValue(f, idx)
	}
	return item
}

func (m *MockAdapter) fieldValue(f schema.Field, idx int) interface{} {
	if f.Type.Kind == schema.KindList {
		return []interface{}{
			fmt.Sprintf("mock_%s_%d_a", f.Name, idx+1),
			fmt.Sprintf("mock_%s_%d_b", f.Name, idx+1),
		}
	}
	if f.Type.Kind == schema.KindObject {
		if td, ok := m.Schema.Types[f.Type.Name]; ok {
			return m.generateItem(td, idx)
		}
		return nil
	}

	switch f.Type.Kind {
	case schema.KindInt, schema.KindID:
		return idx + 1
	case schema.KindFloat, schema.KindDecimal:
		return 12.34 + float64(idx)
	case schema.KindBoolean:
		return idx%2 == 0
	case schema.KindJSON:
		return map[string]interface{}{"mock_key": "mock_value"}
	case schema.KindDateTime, schema.KindDate, schema.KindTime:
		return time.Now().UTC().Format(time.RFC3339)
	case schema.KindEnum:
		if ed, ok := m.enumFor(f.Type.Name); ok && len(ed.Values) > 0 {
			return ed.Values[idx%len(ed.Values)]
		}
		return "UNKNOWN"
	default:
		return fmt.Sprintf("mock_%s_%d", f.Name, idx+1)
	}
}

func (m *MockAdapter) enumFor(name string) (*schema.EnumDef, bool) {
	ed, ok := m.Schema.Enums[name]
	return ed, ok
}
