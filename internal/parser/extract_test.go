package parser

import "testing"

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  ```JSON\n{\"a\":1}\n```  ", "{\"a\":1}"},
		{"{}", "{}"},
		{"text ```json\n{}\n``` more", "text ```json\n{}\n``` more"},
	}
	for _, tc := range tests {
		if got := StripFence(tc.in); got != tc.want {
			t.Errorf("StripFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"object only", `{"a":1}`, `{"a":1}`},
		{"prose before and after", "Here:\n{\"a\":{\"b\":2}}\nThanks", `{"a":{"b":2}}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no braces falls back to stripped text", "  ```\nnothing here\n```", "nothing here"},
		{"reversed braces fall back", "} oops {", "} oops {"},
		{"only open brace", "{ unterminated", "{ unterminated"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSON(tc.in); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
