package router

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"time"
)

const componentsSchemaPrefix = "#/components/schemas/"

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage{})
)

// schemaRegistry tracks named schema definitions so they are emitted once
// under components and referenced everywhere else
type schemaRegistry struct {
	schemas map[string]map[string]any
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{
		schemas: make(map[string]map[string]any),
	}
}

func (r *schemaRegistry) register(typeName string, schema map[string]any) {
	r.schemas[typeName] = schema
}

func (r *schemaRegistry) has(typeName string) bool {
	_, ok := r.schemas[typeName]
	return ok
}

// getSchemas returns all registered schemas
func (r *schemaRegistry) getSchemas() map[string]any {
	result := make(map[string]any, len(r.schemas))
	for name, schema := range r.schemas {
		result[name] = schema
	}
	return result
}

// schemaGenerator converts Go types to JSON Schema.
//
// With a registry, every named struct becomes a component and is referenced
// through $ref. Without one, structs are inlined and a type that contains
// itself is cut short with a placeholder object.
type schemaGenerator struct {
	registry   *schemaRegistry
	inProgress map[reflect.Type]bool
}

func newSchemaGenerator(registry *schemaRegistry) *schemaGenerator {
	return &schemaGenerator{
		registry:   registry,
		inProgress: make(map[reflect.Type]bool),
	}
}

// generate converts the type of t to a JSON Schema
func (g *schemaGenerator) generate(t any) map[string]any {
	if t == nil {
		return nil
	}
	return g.forType(reflect.TypeOf(t))
}

func (g *schemaGenerator) forType(typ reflect.Type) map[string]any {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	switch typ {
	case timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case rawMessageType:
		return map[string]any{"type": "object"}
	}

	if schema := basicTypeSchema(typ.Kind()); schema != nil {
		return schema
	}

	switch typ.Kind() {
	case reflect.Struct:
		if g.registry != nil && typ.Name() != "" {
			return g.ref(typ)
		}
		return g.inline(typ)
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": g.forType(typ.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": g.forType(typ.Elem()),
		}
	default:
		return map[string]any{"type": "object"}
	}
}

// ref registers typ under its Go name, if it isn't already, and points at it
func (g *schemaGenerator) ref(typ reflect.Type) map[string]any {
	name := typ.Name()
	if !g.registry.has(name) && !g.inProgress[typ] {
		g.inProgress[typ] = true
		g.registry.register(name, g.structSchema(typ))
		delete(g.inProgress, typ)
	}

	return map[string]any{"$ref": componentsSchemaPrefix + name}
}

func (g *schemaGenerator) inline(typ reflect.Type) map[string]any {
	if g.inProgress[typ] {
		return map[string]any{
			"type":        "object",
			"description": "circular reference to " + typ.Name(),
		}
	}

	g.inProgress[typ] = true
	defer delete(g.inProgress, typ)

	return g.structSchema(typ)
}

func (g *schemaGenerator) structSchema(typ reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name, isRequired := parseJsonTag(jsonTag, field.Name)
		if isRequired {
			required = append(required, name)
		}

		fieldSchema := g.forType(field.Type)
		if _, isRef := fieldSchema["$ref"]; !isRef {
			addFieldMetadata(fieldSchema, field)
		}
		properties[name] = fieldSchema
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// parseJsonTag extracts name and required status from a json tag
func parseJsonTag(jsonTag, fieldName string) (string, bool) {
	if jsonTag == "" {
		return fieldName, true
	}

	parts := strings.Split(jsonTag, ",")
	name := parts[0]
	if name == "" {
		name = fieldName
	}

	return name, !slices.Contains(parts[1:], "omitempty")
}

// addFieldMetadata adds documentation from struct tags to a schema
func addFieldMetadata(schema map[string]any, field reflect.StructField) {
	if docTag := field.Tag.Get("doc"); docTag != "" {
		schema["description"] = docTag
	}

	if exampleTag := field.Tag.Get("example"); exampleTag != "" {
		schema["example"] = exampleTag
	}

	if enumTag := field.Tag.Get("enum"); enumTag != "" {
		schema["enum"] = strings.Split(enumTag, ",")
	}
}

// basicTypeSchema creates a schema for a basic Go type
func basicTypeSchema(kind reflect.Kind) map[string]any {
	switch kind {
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.String:
		return map[string]any{"type": "string"}
	default:
		return nil
	}
}

// jsonSchema converts a Go type to a self-contained JSON Schema
func jsonSchema(t any) map[string]any {
	return newSchemaGenerator(nil).generate(t)
}

// schemaRef returns the schema for t as used inside the document: named
// structs become references to components, anything else is inlined with
// its named parts referenced
func (dr *DocRouter) schemaRef(t any) map[string]any {
	return newSchemaGenerator(dr.schemaRegistry).generate(t)
}
