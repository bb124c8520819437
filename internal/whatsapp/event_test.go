package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadWith(t *testing.T, messages string) WebhookPayload {
	t.Helper()
	raw := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","messages":` + messages + `}}]}]}`
	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestParseEventVariants(t *testing.T) {
	tests := []struct {
		name     string
		messages string
		want     Event
	}{
		{
			name:     "text",
			messages: `[{"from":"521","id":"m1","type":"text","text":{"body":"hola"}}]`,
			want:     TextEvent{From: "521", MessageID: "m1", Body: "hola"},
		},
		{
			name:     "list reply",
			messages: `[{"from":"521","id":"m2","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"prd_1","title":"Margarita","description":"rica"}}}]`,
			want:     ListReplyEvent{From: "521", MessageID: "m2", ID: "prd_1", Title: "Margarita", Description: "rica"},
		},
		{
			name:     "button reply",
			messages: `[{"from":"521","id":"m3","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"finalizar","title":"Finalizar"}}}]`,
			want:     ButtonReplyEvent{From: "521", MessageID: "m3", ID: "finalizar", Title: "Finalizar"},
		},
		{
			name: "only first message",
			messages: `[{"from":"521","id":"m1","type":"text","text":{"body":"primero"}},
			            {"from":"521","id":"m2","type":"text","text":{"body":"segundo"}}]`,
			want: TextEvent{From: "521", MessageID: "m1", Body: "primero"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(payloadWith(t, tt.messages))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
			assert.Equal(t, "521", ev.Sender())
		})
	}
}

func TestParseEventNoMessages(t *testing.T) {
	_, err := ParseEvent(WebhookPayload{})
	assert.ErrorIs(t, err, ErrNoMessages)

	_, err = ParseEvent(payloadWith(t, `[]`))
	assert.ErrorIs(t, err, ErrNoMessages)

	var status WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(`{"entry":[{"changes":[{"value":{"statuses":[{"id":"s","status":"delivered"}]}}]}]}`), &status))
	_, err = ParseEvent(status)
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestParseEventMalformed(t *testing.T) {
	for name, messages := range map[string]string{
		"text without body":     `[{"from":"521","type":"text"}]`,
		"no sender":             `[{"type":"text","text":{"body":"x"}}]`,
		"interactive no object": `[{"from":"521","type":"interactive"}]`,
		"list reply missing":    `[{"from":"521","type":"interactive","interactive":{"type":"list_reply"}}]`,
		"button reply missing":  `[{"from":"521","type":"interactive","interactive":{"type":"button_reply"}}]`,
		"unknown interactive":   `[{"from":"521","type":"interactive","interactive":{"type":"nfm_reply"}}]`,
		"image":                 `[{"from":"521","type":"image"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEvent(payloadWith(t, messages))
			var malformed *MalformedEventError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}
