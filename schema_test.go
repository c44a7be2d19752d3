package main

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonschemaForExtDefaults(t *testing.T) {
	sch := jsonschemaForExt[GetBuildLogsToolArgs]()
	require.NotNil(t, sch)
	require.Contains(t, sch.Properties, "job_name")
	require.Contains(t, sch.Properties, "offset")
	require.Contains(t, sch.Properties, "length")
	assert.Equal(t, json.RawMessage("0"), sch.Properties["offset"].Default)
	assert.Equal(t, json.RawMessage("8192"), sch.Properties["length"].Default)

	wait := jsonschemaForExt[WaitForRunningBuildToolArgs]()
	require.Contains(t, wait.Properties, "timeout_seconds")
	assert.Equal(t, json.RawMessage("600"), wait.Properties["timeout_seconds"].Default)
}

func TestJsonschemaForExtNoArguments(t *testing.T) {
	// Argument structs without fields still produce a schema.
	sch := jsonschemaForExt[CheckConnectionToolArgs]()
	require.NotNil(t, sch)
}

func TestDefaultLiteral(t *testing.T) {
	assert.Equal(t, json.RawMessage("8192"), defaultLiteral("8192"))
	assert.Equal(t, json.RawMessage("2.5"), defaultLiteral("2.5"))
	assert.Equal(t, json.RawMessage("true"), defaultLiteral("true"))
	assert.Equal(t, json.RawMessage(`"staging"`), defaultLiteral("staging"))
}

func TestFieldJSONName(t *testing.T) {
	type tagged struct {
		A string `json:"alpha,omitempty"`
		B string
		C string `json:"-"`
	}
	typ := reflect.TypeOf(tagged{})
	fa, _ := typ.FieldByName("A")
	fb, _ := typ.FieldByName("B")
	fc, _ := typ.FieldByName("C")
	assert.Equal(t, "alpha", fieldJSONName(fa))
	assert.Equal(t, "B", fieldJSONName(fb))
	assert.Empty(t, fieldJSONName(fc))
}
