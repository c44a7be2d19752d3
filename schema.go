package main

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// jsonschemaForExt builds the JSON Schema for T and fills in property
// defaults declared via `default` struct tags, which the base generator does
// not read.
func jsonschemaForExt[T any]() *jsonschema.Schema {
	sch, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}

	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("tool argument type must be a struct")
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		def := f.Tag.Get("default")
		if def == "" {
			continue
		}
		name := fieldJSONName(f)
		if name == "" {
			continue
		}
		if sch.Properties == nil {
			sch.Properties = make(map[string]*jsonschema.Schema)
		}
		p, ok := sch.Properties[name]
		if !ok || p == nil {
			p = &jsonschema.Schema{}
			sch.Properties[name] = p
		}
		p.Default = defaultLiteral(def)
	}

	return sch
}

// fieldJSONName resolves the property name the encoder will use for f.
func fieldJSONName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// defaultLiteral encodes a `default` tag value as the JSON literal it spells:
// numbers and booleans stay bare, everything else becomes a string.
func defaultLiteral(def string) json.RawMessage {
	if _, err := strconv.ParseInt(def, 10, 64); err == nil {
		return json.RawMessage(def)
	}
	if _, err := strconv.ParseFloat(def, 64); err == nil {
		return json.RawMessage(def)
	}
	if def == "true" || def == "false" {
		return json.RawMessage(def)
	}
	b, _ := json.Marshal(def)
	return json.RawMessage(b)
}
