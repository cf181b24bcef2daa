package telegram

// Update is the Telegram webhook payload envelope. Only the fields the
// bridge reads are decoded; everything else stays unparsed.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound Telegram message
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User is the sender of a message
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat identifies the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// apiResponse is the Telegram bot API response envelope
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Parse modes accepted by sendMessage
const (
	ParseModeMarkdown = "Markdown"
	ParseModeNone     = ""
)

// ChatActionTyping is the "typing…" indicator action
const ChatActionTyping = "typing"
