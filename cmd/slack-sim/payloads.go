package main

import (
	"fmt"
	"sort"

	"github.com/slack-go/slack"
)

// samples are minimal payloads for each interaction type slack-receiver
// understands.
var samples = map[string]func(responseURL string) map[string]interface{}{
	string(slack.InteractionTypeBlockActions): func(responseURL string) map[string]interface{} {
		return map[string]interface{}{
			"type":         string(slack.InteractionTypeBlockActions),
			"token":        "verification-token",
			"user":         map[string]interface{}{"id": "U2147483697", "name": "sim"},
			"team":         map[string]interface{}{"id": "T0001", "domain": "sim"},
			"channel":      map[string]interface{}{"id": "C2147483705"},
			"response_url": responseURL,
			"actions": []interface{}{map[string]interface{}{
				"block_id":  "roll_block",
				"action_id": "roll",
				"type":      "button",
				"value":     "1d20",
			}},
		}
	},
	string(slack.InteractionTypeViewSubmission): func(string) map[string]interface{} {
		return map[string]interface{}{
			"type":  string(slack.InteractionTypeViewSubmission),
			"token": "verification-token",
			"user":  map[string]interface{}{"id": "U2147483697"},
			"team":  map[string]interface{}{"id": "T0001"},
			"view": map[string]interface{}{
				"type":        "modal",
				"callback_id": "roll_modal",
				"state": map[string]interface{}{"values": map[string]interface{}{
					"dice": map[string]interface{}{"expression": map[string]interface{}{"type": "plain_text_input", "value": "3d6"}},
				}},
			},
		}
	},
	string(slack.InteractionTypeMessageAction): func(responseURL string) map[string]interface{} {
		return map[string]interface{}{
			"type":         string(slack.InteractionTypeMessageAction),
			"token":        "verification-token",
			"callback_id":  "reroll",
			"user":         map[string]interface{}{"id": "U2147483697"},
			"team":         map[string]interface{}{"id": "T0001"},
			"channel":      map[string]interface{}{"id": "C2147483705"},
			"message":      map[string]interface{}{"text": "1d20 = 12", "ts": "1355517523.000005"},
			"response_url": responseURL,
		}
	},
	string(slack.InteractionTypeInteractionMessage): func(responseURL string) map[string]interface{} {
		return map[string]interface{}{
			"type":         string(slack.InteractionTypeInteractionMessage),
			"token":        "verification-token",
			"callback_id":  "legacy_roll",
			"user":         map[string]interface{}{"id": "U2147483697"},
			"team":         map[string]interface{}{"id": "T0001"},
			"channel":      map[string]interface{}{"id": "C2147483705"},
			"actions":      []interface{}{map[string]interface{}{"name": "roll", "type": "button", "value": "2d8"}},
			"response_url": responseURL,
		}
	},
	string(slack.InteractionTypeBlockSuggestion): func(string) map[string]interface{} {
		return map[string]interface{}{
			"type":      string(slack.InteractionTypeBlockSuggestion),
			"token":     "verification-token",
			"user":      map[string]interface{}{"id": "U2147483697"},
			"team":      map[string]interface{}{"id": "T0001"},
			"block_id":  "dice_block",
			"action_id": "dice_select",
			"value":     "d2",
		}
	},
	string(slack.InteractionTypeDialogSuggestion): func(string) map[string]interface{} {
		return map[string]interface{}{
			"type":        string(slack.InteractionTypeDialogSuggestion),
			"token":       "verification-token",
			"callback_id": "legacy_dialog",
			"name":        "dice",
			"value":       "d1",
			"user":        map[string]interface{}{"id": "U2147483697"},
			"team":        map[string]interface{}{"id": "T0001"},
		}
	},
}

// endpointFor returns the receiver path that handles typ.
func endpointFor(typ string) string {
	switch typ {
	case string(slack.InteractionTypeBlockSuggestion), string(slack.InteractionTypeDialogSuggestion):
		return "/slack/options"
	}
	return "/slack/actions"
}

func samplePayload(typ, responseURL string) (map[string]interface{}, error) {
	f, ok := samples[typ]
	if !ok {
		return nil, fmt.Errorf("no sample for %q, try one of %v", typ, sampleTypes())
	}
	p := f(responseURL)
	if responseURL == "" {
		delete(p, "response_url")
	}
	return p, nil
}

func sampleTypes() []string {
	types := make([]string, 0, len(samples))
	for t := range samples {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
