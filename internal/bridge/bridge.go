// Package bridge defines the callback surface the chat platform registers
// with the orchestrator. The platform client itself lives outside this
// repository.
package bridge

// Sender delivers a text message to a chat, optionally replying to a
// specific message.
type Sender interface {
	Send(chatID int64, text string, replyToMsgID int64) error
}

// Reactor sets or clears a reaction emoji on a message. An empty emoji
// clears the reaction.
type Reactor interface {
	SetReaction(chatID, msgID int64, emoji string) error
}

// Responder optionally delivers a message with file attachments.
type Responder interface {
	RespondWithFiles(chatID, msgID int64, text string, filePaths []string) error
}

// Callbacks bundles the per-project bridge registration. Responder may be
// nil.
type Callbacks struct {
	Sender    Sender
	Reactor   Reactor
	Responder Responder
}

// Well-known reaction emojis.
const (
	EmojiSeen    = "👀"
	EmojiWorking = "⏳"
	EmojiOK      = "👍"
	EmojiSuccess = "🏆"
	// EmojiError is the error reaction. The platform rejects ❌, so it
	// must never be used.
	EmojiError = "😱"
)

// validEmojis is the reaction set the platform accepts.
var validEmojis = map[string]bool{
	EmojiSeen:    true,
	EmojiWorking: true,
	EmojiOK:      true,
	EmojiSuccess: true,
	EmojiError:   true,
}

// ValidEmoji reports whether the platform accepts emoji as a reaction.
// Empty (clear) is always valid.
func ValidEmoji(emoji string) bool {
	return emoji == "" || validEmojis[emoji]
}

// ProjectConfig is the per-project configuration the bridge supplies at
// registration time.
type ProjectConfig struct {
	WorkingDirectory string
	AutoMerge        bool
	// SystemPromptFile overrides the global system prompt for this
	// project's agent runs.
	SystemPromptFile string
}
