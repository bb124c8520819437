package whatsapp

import "fmt"

// MaxButtons is the Cloud API limit of reply buttons per message.
const MaxButtons = 3

// ButtonOption is one reply button. ID comes back in the button_reply webhook.
type ButtonOption struct {
	ID    string
	Title string // max 20 chars
}

// ListItem is a source item for a list row.
type ListItem struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups items under a title. Each item becomes exactly one row.
type ListSection struct {
	Title string
	Items []ListItem
}

// ListPrompt describes a list message. Header and Footer are optional and are
// left out of the payload when empty.
type ListPrompt struct {
	To         string
	Header     string
	Body       string
	Footer     string
	ButtonText string
	Sections   []ListSection
}

func BuildText(to, body string) (SendMessageRequest, error) {
	if to == "" {
		return SendMessageRequest{}, invalid("recipient is required")
	}
	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &SendText{Body: body},
	}, nil
}

// BuildButtonMessage builds a reply-button prompt. It accepts 1 to MaxButtons buttons.
func BuildButtonMessage(to, text string, buttons []ButtonOption) (SendMessageRequest, error) {
	if to == "" {
		return SendMessageRequest{}, invalid("recipient is required")
	}
	if len(buttons) == 0 || len(buttons) > MaxButtons {
		return SendMessageRequest{}, invalid(fmt.Sprintf("button messages take 1 to %d buttons, got %d", MaxButtons, len(buttons)))
	}

	wa := make([]Button, len(buttons))
	for i, b := range buttons {
		wa[i] = Button{
			Type:  "reply",
			Reply: ButtonReply{ID: b.ID, Title: b.Title},
		}
	}

	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: text},
			Action: InteractiveAction{Buttons: wa},
		},
	}, nil
}

func BuildListMessage(p ListPrompt) (SendMessageRequest, error) {
	if p.To == "" {
		return SendMessageRequest{}, invalid("recipient is required")
	}

	sections := make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		rows := make([]SectionRow, len(s.Items))
		for j, item := range s.Items {
			rows[j] = SectionRow{ID: item.ID, Title: item.Title, Description: item.Description}
		}
		sections[i] = Section{Title: s.Title, Rows: rows}
	}

	interactive := &Interactive{
		Type: "list",
		Body: InteractiveBody{Text: p.Body},
		Action: InteractiveAction{
			Button:   p.ButtonText,
			Sections: sections,
		},
	}
	if p.Header != "" {
		interactive.Header = &InteractiveHeader{Type: "text", Text: p.Header}
	}
	if p.Footer != "" {
		interactive.Footer = &InteractiveFooter{Text: p.Footer}
	}

	return SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               p.To,
		Type:             "interactive",
		Interactive:      interactive,
	}, nil
}

// Kind labels a request for metrics and logs: text, button or list.
func (m SendMessageRequest) Kind() string {
	if m.Interactive != nil {
		return m.Interactive.Type
	}
	return m.Type
}
