package receiver

import "net/http"

func normalizeAction(p *Payload, env Envelope, w http.ResponseWriter) *Request {
	body := p.Body
	switch p.Variant {
	case BlockActions:
		body = reshapeBlockActions(body)
	case ViewSubmission:
		body = reshapeViewSubmission(body)
	}

	req := &Request{
		Kind: KindAction,
		Body: body,
		Meta: extractMeta(body, env.Header),
	}
	// message_action and block_actions cannot be answered in the HTTP response.
	switch VariantOf(body.Type()) {
	case MessageAction, BlockActions:
	default:
		req.attachResponse(w, ActionResponseTimeout)
	}
	return req
}

// reshapeBlockActions gives every action a name (its action_id) and a
// selected_options list (its selected_option), and lifts the first action's
// block_id to callback_id.
func reshapeBlockActions(b Body) Body {
	actions, ok := b["actions"].([]interface{})
	if !ok {
		return b
	}
	out := b.clone()
	reshaped := make([]interface{}, len(actions))
	for i, a := range actions {
		action, ok := a.(map[string]interface{})
		if !ok {
			reshaped[i] = a
			continue
		}
		r := Body(action).clone()
		if id := action["action_id"]; present(id) {
			r["name"] = id
		}
		if opt := action["selected_option"]; present(opt) {
			r["selected_options"] = []interface{}{opt}
		}
		reshaped[i] = map[string]interface{}(r)
	}
	out["actions"] = reshaped

	if len(reshaped) > 0 {
		if first, ok := reshaped[0].(map[string]interface{}); ok && present(first["block_id"]) {
			out["callback_id"] = first["block_id"]
		}
	}
	return out
}

// reshapeViewSubmission replaces actions with one entry holding the view's
// state values, and takes type and callback_id from the view. A missing view
// is treated as an empty one.
func reshapeViewSubmission(b Body) Body {
	out := b.clone()
	view := b.Object("view")

	action := map[string]interface{}{}
	if values := view.Object("state")["values"]; present(values) {
		action["selected_options"] = []interface{}{values}
	}
	out["actions"] = []interface{}{action}

	copyField(out, "type", view, "type")
	copyField(out, "callback_id", view, "callback_id")
	return out
}
