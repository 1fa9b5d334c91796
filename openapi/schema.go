package openapi

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

func (o *OpenAPI) generateSchema(example any) *openapi3.SchemaRef {
	o.mu.Lock()
	defer o.mu.Unlock()

	if example == nil {
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}

	return o.generateSchemaFromType(reflect.TypeOf(example), make(map[string]bool))
}

func getTypeKey(t reflect.Type) string {
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func (o *OpenAPI) generateSchemaFromType(t reflect.Type, visited map[string]bool) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		inner := o.generateSchemaFromType(t.Elem(), visited)
		if inner.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{inner}, Nullable: true}}
		}
		inner.Value.Nullable = true
		return inner
	}

	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema().WithMin(0)}
	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()}
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()}
	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: o.generateSchemaFromType(t.Elem(), visited),
		}}
	case reflect.Map:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Schema: o.generateSchemaFromType(t.Elem(), visited)},
		}}
	case reflect.Struct:
		return o.generateStructSchema(t, visited)
	default:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
}

// generateStructSchema registers named structs as components and returns a
// reference. Two types sharing a name get numbered suffixes.
func (o *OpenAPI) generateStructSchema(t reflect.Type, visited map[string]bool) *openapi3.SchemaRef {
	if t.PkgPath() == "time" && t.Name() == "Time" {
		return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()}
	}

	if t.Name() == "" || t.PkgPath() == "" {
		return &openapi3.SchemaRef{Value: o.buildStructSchema(t, visited)}
	}

	typeKey := getTypeKey(t)
	if registeredName, exists := o.schemaRegistry[typeKey]; exists {
		var value *openapi3.Schema
		if component, ok := o.spec.Components.Schemas[registeredName]; ok {
			value = component.Value
		}
		return openapi3.NewSchemaRef("#/components/schemas/"+registeredName, value)
	}

	schemaName := t.Name()
	for suffix := 2; ; suffix++ {
		existing, taken := o.schemaNameRegistry[schemaName]
		if !taken || existing == typeKey {
			break
		}
		schemaName = t.Name() + strconv.Itoa(suffix)
	}

	o.schemaRegistry[typeKey] = schemaName
	o.schemaNameRegistry[schemaName] = typeKey

	schema := o.buildStructSchema(t, visited)
	if o.spec.Components.Schemas == nil {
		o.spec.Components.Schemas = make(openapi3.Schemas)
	}
	o.spec.Components.Schemas[schemaName] = &openapi3.SchemaRef{Value: schema}

	return openapi3.NewSchemaRef("#/components/schemas/"+schemaName, schema)
}

func (o *OpenAPI) buildStructSchema(t reflect.Type, visited map[string]bool) *openapi3.Schema {
	typeKey := getTypeKey(t)
	if visited[typeKey] {
		return openapi3.NewObjectSchema()
	}
	visited[typeKey] = true
	defer delete(visited, typeKey)

	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas)

	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		// Embedded structs without a json name are flattened like encoding/json does.
		if field.Anonymous && jsonTag == "" && field.Type.Kind() == reflect.Struct {
			embedded := o.buildStructSchema(field.Type, visited)
			for name, prop := range embedded.Properties {
				schema.Properties[name] = prop
			}
			required = append(required, embedded.Required...)
			continue
		}

		if !field.IsExported() {
			continue
		}

		tagParts := strings.Split(jsonTag, ",")
		name := field.Name
		if tagParts[0] != "" {
			name = tagParts[0]
		}

		prop := o.generateSchemaFromType(field.Type, visited)
		if doc := field.Tag.Get("doc"); doc != "" {
			if prop.Ref != "" {
				prop = &openapi3.SchemaRef{Value: &openapi3.Schema{AllOf: openapi3.SchemaRefs{prop}}}
			}
			prop.Value.Description = doc
		}
		schema.Properties[name] = prop

		optional := false
		for _, part := range tagParts[1:] {
			if part == "omitempty" {
				optional = true
			}
		}
		if !optional {
			required = append(required, name)
		}
	}

	schema.Required = required
	return schema
}
