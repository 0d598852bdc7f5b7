package stream

import "github.com/runpod/vllm/pkg/proxy/types"

// ChunkMeta identifies the response every chunk belongs to.
type ChunkMeta struct {
	ID      string
	Model   string
	Created int64
}

// ChatChunk renders a non-terminator event as a chat.completion.chunk.
func ChatChunk(meta ChunkMeta, ev Event) *types.ChatCompletionStreamResponse {
	var delta types.DeltaMessage
	if ev.Role != "" {
		delta.Role = ev.Role
	} else {
		text := ev.Text
		delta.Content = &text
	}

	return &types.ChatCompletionStreamResponse{
		ID:      meta.ID,
		Object:  types.ObjectChatCompletionChunk,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: []types.ChatCompletionResponseStreamChoice{{
			Index:        ev.Index,
			Delta:        delta,
			FinishReason: types.StringPtr(ev.FinishReason),
		}},
	}
}

// CompletionChunk renders a non-terminator event as a text_completion chunk.
func CompletionChunk(meta ChunkMeta, ev Event) *types.CompletionStreamResponse {
	return &types.CompletionStreamResponse{
		ID:      meta.ID,
		Object:  types.ObjectTextCompletion,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: []types.CompletionResponseStreamChoice{{
			Index:        ev.Index,
			Text:         ev.Text,
			Logprobs:     ev.Logprobs,
			FinishReason: types.StringPtr(ev.FinishReason),
		}},
	}
}

// Chunk renders ev for mode.
func Chunk(mode Mode, meta ChunkMeta, ev Event) any {
	if mode == ModeCompletion {
		return CompletionChunk(meta, ev)
	}
	return ChatChunk(meta, ev)
}
