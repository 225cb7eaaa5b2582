package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "visa-tracker/internal/common/errors"
)

const testSchema = `{
	"type": "object",
	"required": ["firstName", "lastName"],
	"properties": {
		"firstName": {"type": "string", "minLength": 1},
		"lastName": {"type": "string", "minLength": 1},
		"table": {"type": "string"}
	}
}`

func TestSchema_Validate(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		valid     bool
		badFields []string
	}{
		{name: "valid", doc: map[string]interface{}{"firstName": "John", "lastName": "Smith"}, valid: true},
		{name: "missing last name", doc: map[string]interface{}{"firstName": "John"}, badFields: []string{"(root)"}},
		{name: "empty first name", doc: map[string]interface{}{"firstName": "", "lastName": "Smith"}, badFields: []string{"firstName"}},
		{name: "wrong type", doc: map[string]interface{}{"firstName": "John", "lastName": "Smith", "table": 2024}, badFields: []string{"table"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			for _, f := range tt.badFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.GetErrorMessages())
			}
		})
	}
}

func TestSchema_Check(t *testing.T) {
	s := MustCompile(testSchema)

	assert.NoError(t, s.Check(map[string]interface{}{"firstName": "a", "lastName": "b"}))

	err := s.Check(map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "firstName")
}

func TestCompile_Malformed(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}
