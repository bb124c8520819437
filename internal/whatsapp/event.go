package whatsapp

// Event is one inbound user message. It is one of TextEvent, ListReplyEvent
// or ButtonReplyEvent.
type Event interface {
	Sender() string
	Kind() string
}

type TextEvent struct {
	From      string
	MessageID string
	Body      string
}

type ListReplyEvent struct {
	From        string
	MessageID   string
	ID          string
	Title       string
	Description string
}

type ButtonReplyEvent struct {
	From      string
	MessageID string
	ID        string
	Title     string
}

func (e TextEvent) Sender() string        { return e.From }
func (e ListReplyEvent) Sender() string   { return e.From }
func (e ButtonReplyEvent) Sender() string { return e.From }

func (TextEvent) Kind() string        { return "text" }
func (ListReplyEvent) Kind() string   { return "list_reply" }
func (ButtonReplyEvent) Kind() string { return "button_reply" }

// ParseEvent extracts the first message of the first change of the first entry.
// Any further messages in the same delivery are ignored. It returns ErrNoMessages
// when there is nothing to handle and *MalformedEventError when the message does
// not match its declared type.
func ParseEvent(p WebhookPayload) (Event, error) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil, ErrNoMessages
	}
	messages := p.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	msg := messages[0]
	if msg.From == "" {
		return nil, &MalformedEventError{Reason: "message has no sender"}
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil, &MalformedEventError{Reason: "text message without text body"}
		}
		return TextEvent{From: msg.From, MessageID: msg.ID, Body: msg.Text.Body}, nil

	case "interactive":
		if msg.Interactive == nil {
			return nil, &MalformedEventError{Reason: "interactive message without interactive object"}
		}
		switch msg.Interactive.Type {
		case "list_reply":
			r := msg.Interactive.ListReply
			if r == nil {
				return nil, &MalformedEventError{Reason: "list_reply without list_reply object"}
			}
			return ListReplyEvent{From: msg.From, MessageID: msg.ID, ID: r.ID, Title: r.Title, Description: r.Description}, nil
		case "button_reply":
			r := msg.Interactive.ButtonReply
			if r == nil {
				return nil, &MalformedEventError{Reason: "button_reply without button_reply object"}
			}
			return ButtonReplyEvent{From: msg.From, MessageID: msg.ID, ID: r.ID, Title: r.Title}, nil
		default:
			return nil, &MalformedEventError{Reason: "unsupported interactive type " + msg.Interactive.Type}
		}

	default:
		return nil, &MalformedEventError{Reason: "unsupported message type " + msg.Type}
	}
}
