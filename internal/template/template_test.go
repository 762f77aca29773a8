package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	t.Parallel()

	payload := map[string]string{
		"id":    "42",
		"event": "page.published",
		"empty": "",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "https://example.com/hook", "https://example.com/hook"},
		{"single placeholder", "https://example.com/${id}", "https://example.com/42"},
		{"multiple placeholders", "${event}:${id}", "page.published:42"},
		{"repeated placeholder", "${id}-${id}", "42-42"},
		{"unknown key kept verbatim", "https://example.com/${missing}", "https://example.com/${missing}"},
		{"empty value substitutes", "x${empty}y", "xy"},
		{"adjacent placeholders", "${event}${id}", "page.published42"},
		{"malformed placeholder untouched", "${not closed", "${not closed"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExpandString(tt.in, payload))
		})
	}
}

func TestExpandMap(t *testing.T) {
	t.Parallel()

	payload := map[string]string{"token": "abc123"}

	got := ExpandMap(map[string]string{
		"Authorization": "Bearer ${token}",
		"X-Static":      "fixed",
	}, payload)

	assert.Equal(t, "Bearer abc123", got["Authorization"])
	assert.Equal(t, "fixed", got["X-Static"])

	assert.Nil(t, ExpandMap(nil, payload))
}

func TestExpandJSON(t *testing.T) {
	t.Parallel()

	payload := map[string]string{
		"id":    "42",
		"title": "Hello",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "flat object",
			in:   `{"page":"${id}","title":"${title}"}`,
			want: `{"page":"42","title":"Hello"}`,
		},
		{
			name: "nested object and array",
			in:   `{"data":{"ids":["${id}","${id}"],"meta":{"t":"${title}"}}}`,
			want: `{"data":{"ids":["42","42"],"meta":{"t":"Hello"}}}`,
		},
		{
			name: "non-string scalars untouched",
			in:   `{"count":3,"ok":true,"none":null,"id":"${id}"}`,
			want: `{"count":3,"id":"42","none":null,"ok":true}`,
		},
		{
			name: "unknown key survives round trip",
			in:   `{"v":"${missing}"}`,
			want: `{"v":"${missing}"}`,
		},
		{
			name: "top level array",
			in:   `["${id}",1,"plain"]`,
			want: `["42",1,"plain"]`,
		},
		{
			name: "top level string",
			in:   `"id=${id}"`,
			want: `"id=42"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExpandJSON(json.RawMessage(tt.in), payload)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExpandJSONInvalidInput(t *testing.T) {
	t.Parallel()

	// Bodies that are not valid JSON expand as plain string templates.
	got := ExpandJSON(json.RawMessage("id=${id}&x=1"), map[string]string{"id": "42"})

	var s string
	require.NoError(t, json.Unmarshal(got, &s))
	assert.Equal(t, "id=42&x=1", s)
}

func TestExpandJSONEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ExpandJSON(nil, map[string]string{"id": "42"}))
	assert.Nil(t, ExpandJSON(json.RawMessage{}, nil))
}

func TestValueRoundTrip(t *testing.T) {
	t.Parallel()

	in := `{"a":"x","b":[1,"y"],"c":{"d":null}}`
	var v Value
	require.NoError(t, json.Unmarshal([]byte(in), &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}
