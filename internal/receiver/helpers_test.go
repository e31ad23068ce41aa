package receiver

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

const (
	testSignature = "v0=mysignature"
	testTimestamp = "1531420618"
)

// decodeJSON decodes s the same way DecodePayload does.
func decodeJSON(t *testing.T, s string) Body {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var b Body
	if err := dec.Decode(&b); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return b
}

func envelopeOf(t *testing.T, payload interface{}) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("could not marshal fixture: %v", err)
	}
	h := http.Header{}
	h.Set(signatureHeader, testSignature)
	h.Set(timestampHeader, testTimestamp)
	return Envelope{Payload: string(raw), Header: h}
}

func mockPayload() map[string]interface{} {
	return map[string]interface{}{
		"token":   "token",
		"user":    map[string]interface{}{"id": "user_id"},
		"channel": map[string]interface{}{"id": "channel_id"},
		"team":    map[string]interface{}{"id": "team_id"},
	}
}

func mockViewPayload() map[string]interface{} {
	return map[string]interface{}{
		"type": "view_submission",
		"team": map[string]interface{}{"id": "team_id"},
		"user": map[string]interface{}{"id": "user_id"},
		"view": map[string]interface{}{
			"id":               "VNHU13V36",
			"type":             "modal",
			"title":            map[string]interface{}{"type": "plain_text", "text": "Modal Menu"},
			"blocks":           []interface{}{},
			"private_metadata": "shhh-its-secret",
			"callback_id":      "modal-with-inputs",
			"state": map[string]interface{}{
				"values": map[string]interface{}{
					"multi-line": map[string]interface{}{
						"ml-value": map[string]interface{}{
							"type":  "plain_text_input",
							"value": "This is my example inputted value",
						},
					},
				},
			},
			"hash":        "156663117.cd33ad1f",
			"external_id": "external_id",
		},
	}
}

func mockSuggestionPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":      "block_suggestion",
		"token":     "token",
		"action_id": "pick-a-user",
		"block_id":  "assignee",
		"value":     "ali",
		"user":      map[string]interface{}{"id": "user_id"},
		"team":      map[string]interface{}{"id": "team_id"},
	}
}

func jsonNumber(s string) json.Number {
	return json.Number(s)
}
