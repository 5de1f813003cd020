package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"leading_prose", "Sure! Here is the JSON:\n{\"a\":1}", `{"a":1}`, true},
		{"trailing_prose", `{"a":1} hope that helps`, `{"a":1}`, true},
		{"code_fence", "```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`, true},
		{"nested", `x {"a":{"b":{"c":3}}} y`, `{"a":{"b":{"c":3}}}`, true},
		{"braces_in_strings", `{"a":"}{","b":"\"}"}`, `{"a":"}{","b":"\"}"}`, true},
		{"unbalanced_then_balanced", `{ oops {"a":1}`, `{"a":1}`, true},
		{"no_json", "sorry, I cannot read this document", "", false},
		{"only_open", `{"a":`, "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
