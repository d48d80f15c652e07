package ai

import "testing"

func TestExtractFirstJSONSpan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain object", `{"a":1}`, `{"a":1}`, true},
		{"prose around", `Claro! Aqui está: {"a":1} espero ter ajudado`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, true},
		{"fence without tag", "```\n[1,2,3]\n```", `[1,2,3]`, true},
		{"braces inside strings", `{"t":"fim }","u":"{"} trailing }`, `{"t":"fim }","u":"{"}`, true},
		{"escaped quote", `{"t":"a \"}\" b"}`, `{"t":"a \"}\" b"}`, true},
		{"array first", `[{"x":1},{"x":2}] {"y":3}`, `[{"x":1},{"x":2}]`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no json", `sem resposta`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFirstJSONSpan(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("span = %q, want %q", got, tt.want)
			}
		})
	}
}
