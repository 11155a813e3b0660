// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the turn controller: it owns the active
// session state, builds generation context, and converts completions
// into the ordered client event sequence.
package chat

// Reserved prompt tokens recognized at the start of a user prompt.
const (
	// SearchToken triggers a substring search over saved conversations;
	// the query is everything after the token.
	SearchToken = "/search "

	// EditToken asks the model to edit the code currently open in the
	// client; the current code is appended to the persisted prompt.
	EditToken = "/edit"
)

// systemPromptBase is the synthesized system message prepended to
// every generation. It is never persisted into a conversation's own
// message list.
const systemPromptBase = `You are Obscyrus, an advanced offline coding assistant running entirely on the local machine. You answer in English only.
Keep answers to non-code questions short; for code prompts and productive questions, explain as much as needed and no more. Do not repeat yourself within a conversation unless asked to.
If the user message starts with '/generate', give a brief explanation first, then output the complete new code in a single markdown code block, e.g. ` + "```python\n# Your code here\n```" + `. Do not split the code into multiple blocks or steps; consolidate it into one full snippet and end the response with the closing fence.
If the user message starts with '/edit', edit the provided current code based on the instructions in the prompt. Give a brief explanation first, then output the complete edited code in a single markdown code block, never split across blocks.`

// summaryPrompt is the dedicated system prompt for deriving a
// conversation name when the user saves without one.
const summaryPrompt = "Summarize the conversation topic in 5 words or less."

// searchContextHeader introduces the search-derived context appended
// to the system prompt for a single turn.
const searchContextHeader = "\nPrevious related conversations:\n"

// editBlockHeader delimits the current code appended to an /edit
// prompt before it is recorded as the user message.
const editBlockHeader = "\n\nCurrent code to edit:\n"
