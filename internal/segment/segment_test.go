// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment splits a raw model completion into an explanation,
// at most one fenced code block, and a trailing remark.
package segment

import "testing"

func TestSplit_NoFence(t *testing.T) {
	res := Split("  Just an answer, no code.\n")

	if res.Explanation != "Just an answer, no code." {
		t.Errorf("Explanation = %q, want trimmed input", res.Explanation)
	}
	if res.Code != nil {
		t.Errorf("Code should be nil, got %+v", res.Code)
	}
	if res.Trailing != "" {
		t.Errorf("Trailing = %q, want empty", res.Trailing)
	}
}

func TestSplit_CompleteBlock(t *testing.T) {
	raw := "Here is the script:\n```python\nprint('hi')\n```\nRun it with python3."
	res := Split(raw)

	if res.Explanation != "Here is the script:" {
		t.Errorf("Explanation = %q", res.Explanation)
	}
	if res.Code == nil {
		t.Fatal("Expected a code block")
	}
	if res.Code.Language != "python" {
		t.Errorf("Language = %q, want %q", res.Code.Language, "python")
	}
	if res.Code.Text != "print('hi')" {
		t.Errorf("Code.Text = %q", res.Code.Text)
	}
	if res.Trailing != "Run it with python3." {
		t.Errorf("Trailing = %q", res.Trailing)
	}
}

func TestSplit_FenceAtStart(t *testing.T) {
	res := Split("```go\nfmt.Println(1)\n```")

	if res.Explanation != "" {
		t.Errorf("Explanation = %q, want empty when completion starts with a fence", res.Explanation)
	}
	if res.Code == nil || res.Code.Language != "go" {
		t.Fatalf("Code = %+v, want go block", res.Code)
	}
	if res.Code.Text != "fmt.Println(1)" {
		t.Errorf("Code.Text = %q", res.Code.Text)
	}
	if res.Trailing != "" {
		t.Errorf("Trailing = %q, want empty when closing fence ends the input", res.Trailing)
	}
}

func TestSplit_UnterminatedBlock(t *testing.T) {
	res := Split("Partial answer:\n```bash\necho hello")

	if res.Explanation != "Partial answer:" {
		t.Errorf("Explanation = %q", res.Explanation)
	}
	if res.Code == nil {
		t.Fatal("Expected a code block for unterminated fence")
	}
	if res.Code.Text != "echo hello" {
		t.Errorf("Code.Text = %q, want rest of input", res.Code.Text)
	}
	if res.Trailing != "" {
		t.Errorf("Trailing = %q, want empty for unterminated block", res.Trailing)
	}
}

func TestSplit_BlankLanguageTag(t *testing.T) {
	res := Split("See:\n```\nx = 1\n```")

	if res.Code == nil {
		t.Fatal("Expected a code block")
	}
	if res.Code.Language != "" {
		t.Errorf("Language = %q, want empty string for blank tag line", res.Code.Language)
	}
	if res.Code.Text != "x = 1" {
		t.Errorf("Code.Text = %q", res.Code.Text)
	}
}

func TestSplit_DegenerateMarker(t *testing.T) {
	// Fence marker with no newline after it: no code block at all,
	// the remainder is trailing text.
	res := Split("Before ```after")

	if res.Explanation != "Before" {
		t.Errorf("Explanation = %q", res.Explanation)
	}
	if res.Code != nil {
		t.Errorf("Code should be nil for degenerate marker, got %+v", res.Code)
	}
	if res.Trailing != "after" {
		t.Errorf("Trailing = %q, want %q", res.Trailing, "after")
	}
}

func TestSplit_LanguageTagTrimmed(t *testing.T) {
	res := Split("```  python  \ncode\n```")

	if res.Code == nil {
		t.Fatal("Expected a code block")
	}
	if res.Code.Language != "python" {
		t.Errorf("Language = %q, want trimmed tag", res.Code.Language)
	}
}

func TestSplit_Table(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		explanation string
		language    string
		code        string
		hasCode     bool
		trailing    string
	}{
		{name: "empty input", raw: "", explanation: "", hasCode: false},
		{name: "whitespace only", raw: "  \n\t ", explanation: "", hasCode: false},
		{
			name:        "prefix lang body suffix",
			raw:         "intro\n```js\nlet a = 0;\n```\noutro",
			explanation: "intro",
			language:    "js",
			code:        "let a = 0;",
			hasCode:     true,
			trailing:    "outro",
		},
		{
			name:     "only unterminated fence",
			raw:      "```c\nint main(){}",
			language: "c",
			code:     "int main(){}",
			hasCode:  true,
		},
		{
			name:     "multiline code preserved",
			raw:      "```python\ndef f():\n    return 1\n```",
			language: "python",
			code:     "def f():\n    return 1",
			hasCode:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Split(tc.raw)
			if res.Explanation != tc.explanation {
				t.Errorf("Explanation = %q, want %q", res.Explanation, tc.explanation)
			}
			if res.HasCode() != tc.hasCode {
				t.Fatalf("HasCode() = %v, want %v", res.HasCode(), tc.hasCode)
			}
			if tc.hasCode {
				if res.Code.Language != tc.language {
					t.Errorf("Language = %q, want %q", res.Code.Language, tc.language)
				}
				if res.Code.Text != tc.code {
					t.Errorf("Code.Text = %q, want %q", res.Code.Text, tc.code)
				}
			}
			if res.Trailing != tc.trailing {
				t.Errorf("Trailing = %q, want %q", res.Trailing, tc.trailing)
			}
		})
	}
}
