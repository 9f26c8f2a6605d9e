package router

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SimpleStruct struct {
	String  string  `json:"string"`
	Int     int     `json:"int"`
	Bool    bool    `json:"bool"`
	Float   float64 `json:"float"`
	Pointer *string `json:"pointer,omitempty"`
}

type StructWithCollections struct {
	Strings []string                `json:"strings"`
	Objects []SimpleStruct          `json:"objects"`
	Lookup  map[string]SimpleStruct `json:"lookup"`
}

type StructWithTags struct {
	Required    string `json:"required"`
	Optional    string `json:"optional,omitempty"`
	WithDoc     string `json:"withDoc" doc:"This is documentation"`
	WithExample string `json:"withExample" example:"Example value"`
	WithEnum    string `json:"withEnum" enum:"all,active,completed"`
	Ignored     string `json:"-"`
	unexported  string
}

type StructWithSpecials struct {
	Created time.Time       `json:"created"`
	Due     *time.Time      `json:"due,omitempty"`
	Data    json.RawMessage `json:"data"`
}

type CircularStruct struct {
	Name     string           `json:"name"`
	Self     *CircularStruct  `json:"self,omitempty"`
	Children []CircularStruct `json:"children"`
}

var simpleStructSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"string":  map[string]any{"type": "string"},
		"int":     map[string]any{"type": "integer"},
		"bool":    map[string]any{"type": "boolean"},
		"float":   map[string]any{"type": "number"},
		"pointer": map[string]any{"type": "string"},
	},
	"required": []string{"string", "int", "bool", "float"},
}

func TestParseJsonTag(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		jsonTag      string
		fieldName    string
		wantName     string
		wantRequired bool
	}{
		"empty tag uses field name and required": {
			jsonTag:      "",
			fieldName:    "FieldName",
			wantName:     "FieldName",
			wantRequired: true,
		},
		"simple tag": {
			jsonTag:      "propertyName",
			fieldName:    "FieldName",
			wantName:     "propertyName",
			wantRequired: true,
		},
		"optional tag": {
			jsonTag:      "propertyName,omitempty",
			fieldName:    "FieldName",
			wantName:     "propertyName",
			wantRequired: false,
		},
		"empty name in tag": {
			jsonTag:      ",omitempty",
			fieldName:    "FieldName",
			wantName:     "FieldName",
			wantRequired: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			gotName, gotRequired := parseJsonTag(tc.jsonTag, tc.fieldName)
			assert.Equal(t, tc.wantName, gotName)
			assert.Equal(t, tc.wantRequired, gotRequired)
		})
	}
}

func TestJsonSchema(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value    any
		expected map[string]any
	}{
		"nil": {
			value:    nil,
			expected: nil,
		},
		"basic value": {
			value:    int64(3),
			expected: map[string]any{"type": "integer"},
		},
		"simple struct": {
			value:    SimpleStruct{},
			expected: simpleStructSchema,
		},
		"pointer to struct": {
			value:    &SimpleStruct{},
			expected: simpleStructSchema,
		},
		"slice of structs": {
			value: []SimpleStruct{},
			expected: map[string]any{
				"type":  "array",
				"items": simpleStructSchema,
			},
		},
		"collections": {
			value: StructWithCollections{},
			expected: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"strings": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
					"objects": map[string]any{
						"type":  "array",
						"items": simpleStructSchema,
					},
					"lookup": map[string]any{
						"type":                 "object",
						"additionalProperties": simpleStructSchema,
					},
				},
				"required": []string{"strings", "objects", "lookup"},
			},
		},
		"tags": {
			value: StructWithTags{},
			expected: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"required": map[string]any{"type": "string"},
					"optional": map[string]any{"type": "string"},
					"withDoc": map[string]any{
						"type":        "string",
						"description": "This is documentation",
					},
					"withExample": map[string]any{
						"type":    "string",
						"example": "Example value",
					},
					"withEnum": map[string]any{
						"type": "string",
						"enum": []string{"all", "active", "completed"},
					},
				},
				"required": []string{"required", "withDoc", "withExample", "withEnum"},
			},
		},
		"time and raw json": {
			value: StructWithSpecials{},
			expected: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"created": map[string]any{"type": "string", "format": "date-time"},
					"due":     map[string]any{"type": "string", "format": "date-time"},
					"data":    map[string]any{"type": "object"},
				},
				"required": []string{"created", "data"},
			},
		},
		"circular reference": {
			value: CircularStruct{},
			expected: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"self": map[string]any{
						"type":        "object",
						"description": "circular reference to CircularStruct",
					},
					"children": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":        "object",
							"description": "circular reference to CircularStruct",
						},
					},
				},
				"required": []string{"name", "children"},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tc.expected, jsonSchema(tc.value)); diff != "" {
				t.Errorf("schema mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchemaRefRegistersNamedStructs(t *testing.T) {
	t.Parallel()

	router := NewDocRouter("Test API", "API for testing", "1.0.0")

	ref := router.schemaRef(StructWithCollections{})
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/StructWithCollections"}, ref)

	schemas := router.schemaRegistry.getSchemas()
	require.Contains(t, schemas, "StructWithCollections")
	require.Contains(t, schemas, "SimpleStruct", "nested named structs become their own component")

	collections := schemas["StructWithCollections"].(map[string]any)
	objects := collections["properties"].(map[string]any)["objects"].(map[string]any)
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/SimpleStruct"}, objects["items"])

	list := router.schemaRef([]SimpleStruct{})
	assert.Equal(t, map[string]any{
		"type":  "array",
		"items": map[string]any{"$ref": "#/components/schemas/SimpleStruct"},
	}, list, "unnamed types are inlined around their references")
}

func TestSchemaRefHandlesCycles(t *testing.T) {
	t.Parallel()

	router := NewDocRouter("Test API", "API for testing", "1.0.0")

	ref := router.schemaRef(CircularStruct{})
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/CircularStruct"}, ref)

	schema := router.schemaRegistry.getSchemas()["CircularStruct"].(map[string]any)
	props := schema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"$ref": "#/components/schemas/CircularStruct"}, props["self"])
}

func TestGeneratedSchemaAcceptsEncodedValues(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	value := StructWithSpecials{
		Created: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		Due:     &due,
		Data:    json.RawMessage(`{"k":"v"}`),
	}

	schema := compileSchema(t, jsonSchema(value))

	encoded, err := json.Marshal(value)
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(decode(t, encoded)))

	assert.Error(t, schema.Validate(decode(t, []byte(`{"data":{}}`))), "created is required")
	assert.Error(t, schema.Validate(decode(t, []byte(`{"created":1,"data":{}}`))), "created must be a string")
}

func compileSchema(t *testing.T, schema map[string]any) *jsonschema.Schema {
	t.Helper()

	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("schema.json", bytes.NewReader(raw)))

	compiled, err := compiler.Compile("schema.json")
	require.NoError(t, err)
	return compiled
}

func decode(t *testing.T, raw []byte) any {
	t.Helper()

	var v any
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
