package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationMS(t *testing.T) {
	var d DurationMS
	require.NoError(t, json.Unmarshal([]byte("65000"), &d))
	assert.Equal(t, DurationMS(65*time.Second), d)

	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.Equal(t, DurationMS(0), d)

	out, err := json.Marshal(DurationMS(5*time.Minute + 10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"5m10s"`, string(out))
}

func TestTimeMS(t *testing.T) {
	var ts TimeMS
	require.NoError(t, json.Unmarshal([]byte("1719238000000"), &ts))
	assert.Equal(t, int64(1719238000000), time.Time(ts).UnixMilli())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-24T14:06:40Z"`, string(out))

	zero, err := json.Marshal(TimeMS{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(zero))
}
