// internal/ingest/chunker.go
package ingest

import (
	"strings"

	"github.com/mwiater/recallbench/internal/bench"
)

const (
	maxChunkMessages = 4
	minPairMessages  = 2
	defaultRole      = "user"
	assistantRole    = "assistant"
)

// ChunkConversation groups a conversation into storable chunks. A chunk closes
// once it holds four messages, or at least two with the last from the
// assistant; any trailing messages form a final chunk.
func ChunkConversation(conv bench.Conversation) []bench.Chunk {
	context := chunkContext(conv)
	var chunks []bench.Chunk
	var current []bench.Message
	for _, msg := range conv.Messages {
		current = append(current, msg)
		if len(current) >= maxChunkMessages ||
			(len(current) >= minPairMessages && current[len(current)-1].Role == assistantRole) {
			chunks = append(chunks, bench.Chunk{Content: renderMessages(current), Context: context})
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, bench.Chunk{Content: renderMessages(current), Context: context})
	}
	return chunks
}

// ChunkConversations chunks every conversation in order.
func ChunkConversations(convs []bench.Conversation) []bench.Chunk {
	var chunks []bench.Chunk
	for _, conv := range convs {
		chunks = append(chunks, ChunkConversation(conv)...)
	}
	return chunks
}

// PairChunks splits messages into consecutive pairs regardless of role, the
// layout used when replaying scenario conversations.
func PairChunks(messages []bench.Message, context string) []bench.Chunk {
	var chunks []bench.Chunk
	for i := 0; i < len(messages); i += minPairMessages {
		end := i + minPairMessages
		if end > len(messages) {
			end = len(messages)
		}
		chunks = append(chunks, bench.Chunk{Content: renderMessages(messages[i:end]), Context: context})
	}
	return chunks
}

// SessionContext returns the context label stored with a session's chunks.
func SessionContext(session string) string {
	return "session:" + session
}

func chunkContext(conv bench.Conversation) string {
	session := conv.Session
	if session == "" {
		session = conv.ID
	}
	if session != "" {
		return SessionContext(session)
	}
	return conv.Context
}

func renderMessages(msgs []bench.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = defaultRole
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
