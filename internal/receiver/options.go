package receiver

import "net/http"

func normalizeOptions(p *Payload, env Envelope, w http.ResponseWriter) *Request {
	body := p.Body
	if p.Variant == BlockSuggestion {
		body = reshapeBlockSuggestion(body)
	}
	req := &Request{
		Kind: KindOptions,
		Body: body,
		Meta: extractMeta(body, env.Header),
	}
	req.attachResponse(w, OptionsResponseTimeout)
	return req
}

// reshapeBlockSuggestion maps action_id to name and block_id to callback_id.
func reshapeBlockSuggestion(b Body) Body {
	out := b.clone()
	if id := b["action_id"]; present(id) {
		out["name"] = id
	}
	if id := b["block_id"]; present(id) {
		out["callback_id"] = id
	}
	return out
}
