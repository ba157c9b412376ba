package chatprompt

import (
	"context"
	"reflect"
	"sync"
)

type payloadField struct {
	index int
	tag   string
}

type payloadSchema struct {
	fields []payloadField
}

var payloadCache sync.Map // reflect.Type -> *payloadSchema

// ValuesFromStruct reads template values from the `prompt:"name"` tagged fields of a struct
// or struct pointer. Untagged fields and `prompt:"-"` are skipped. []Message fields are
// passed through unchanged, so they can feed placeholders.
// Returns ErrInvalidPayload for non-structs and structs without tagged fields.
func ValuesFromStruct(payload any) (map[string]any, error) {
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, ErrInvalidPayload
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, ErrInvalidPayload
	}
	schema, err := schemaFor(v.Type())
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(schema.fields))
	for _, f := range schema.fields {
		field := v.Field(f.index)
		if field.CanInterface() {
			values[f.tag] = field.Interface()
		}
	}
	return values, nil
}

func schemaFor(typ reflect.Type) (*payloadSchema, error) {
	if cached, ok := payloadCache.Load(typ); ok {
		return cached.(*payloadSchema), nil
	}
	schema := &payloadSchema{}
	for i := range typ.NumField() {
		f := typ.Field(i)
		tag := f.Tag.Get("prompt")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		schema.fields = append(schema.fields, payloadField{index: i, tag: tag})
	}
	if len(schema.fields) == 0 {
		return nil, ErrInvalidPayload
	}
	payloadCache.Store(typ, schema)
	return schema, nil
}

// FormatStruct renders the messages with values taken from a tagged payload struct.
func (c *ChatTemplate) FormatStruct(ctx context.Context, payload any) (ChatValue, error) {
	values, err := ValuesFromStruct(payload)
	if err != nil {
		return nil, err
	}
	msgs, err := c.FormatMessagesContext(ctx, values)
	if err != nil {
		return nil, err
	}
	return ChatValue(msgs), nil
}
