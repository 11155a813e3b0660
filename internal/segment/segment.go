// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package segment splits a raw model completion into an explanation,
// at most one fenced code block, and a trailing remark.
package segment

import "strings"

// fence is the markdown code fence marker.
const fence = "```"

// CodeBlock is a fenced code segment extracted from a completion.
type CodeBlock struct {
	// Language is the fence's language tag, trimmed. Empty when the tag
	// line is blank; never absent when a block exists.
	Language string
	// Text is the code between the tag line and the closing fence,
	// trimmed of surrounding whitespace.
	Text string
}

// Result is the ordered decomposition of a single completion.
// Order is always Explanation, then Code if present, then Trailing.
type Result struct {
	// Explanation is everything before the first fence, trimmed.
	// May be empty when the completion starts with a fence.
	Explanation string
	// Code is the first fenced block, or nil when no block exists.
	Code *CodeBlock
	// Trailing is everything after the closing fence, trimmed. Empty
	// when the block is unterminated or the fence ends the input.
	Trailing string
}

// scanState enumerates the phases of the fence scan.
type scanState int

const (
	seekFirstFence scanState = iota
	readLangTag
	seekSecondFence
	done
)

// Split decomposes a raw completion. It never fails: malformed or
// unterminated fences degrade gracefully rather than erroring, since
// model output is not guaranteed to be well formed.
func Split(raw string) Result {
	var (
		res     Result
		state   = seekFirstFence
		openIdx = -1 // index of first fence marker
		tagEnd  = -1 // index just past the language tag line's newline
	)

	for state != done {
		switch state {
		case seekFirstFence:
			openIdx = strings.Index(raw, fence)
			if openIdx < 0 {
				// No fence: the whole input is explanation.
				res.Explanation = strings.TrimSpace(raw)
				state = done
				continue
			}
			res.Explanation = strings.TrimSpace(raw[:openIdx])
			state = readLangTag

		case readLangTag:
			nl := strings.IndexByte(raw[openIdx+len(fence):], '\n')
			if nl < 0 {
				// Degenerate marker with no tag line: no code block,
				// the remainder becomes trailing text.
				res.Trailing = strings.TrimSpace(raw[openIdx+len(fence):])
				state = done
				continue
			}
			lang := strings.TrimSpace(raw[openIdx+len(fence) : openIdx+len(fence)+nl])
			res.Code = &CodeBlock{Language: lang}
			tagEnd = openIdx + len(fence) + nl + 1
			state = seekSecondFence

		case seekSecondFence:
			closeIdx := strings.Index(raw[tagEnd:], fence)
			if closeIdx < 0 {
				// Unterminated block: take everything to end of input.
				res.Code.Text = strings.TrimSpace(raw[tagEnd:])
				state = done
				continue
			}
			res.Code.Text = strings.TrimSpace(raw[tagEnd : tagEnd+closeIdx])
			res.Trailing = strings.TrimSpace(raw[tagEnd+closeIdx+len(fence):])
			state = done
		}
	}

	return res
}

// HasCode reports whether the result contains a code block.
func (r Result) HasCode() bool {
	return r.Code != nil
}
