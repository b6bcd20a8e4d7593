package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Local talks to a self-hosted translation server. By default it speaks the
// LibreTranslate protocol; a payload template and response path adapt it to
// other servers.
type Local struct {
	client       *http.Client
	url          string
	source       string
	target       string
	payload      string
	responsePath string
}

type libreRequest struct {
	Q            string `json:"q"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Format       string `json:"format"`
	Alternatives int    `json:"alternatives"`
	APIKey       string `json:"api_key"`
}

func (l *Local) Translate(ctx context.Context, text string) (string, error) {
	var body any = libreRequest{Q: text, Source: l.source, Target: l.target, Format: "text"}
	if l.payload != "" {
		body = []byte(renderPayload(l.payload, text, l.source, l.target))
	}

	data, err := postJSON(ctx, l.client, l.url, nil, body)
	if err != nil {
		return "", err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", unexpected(data)
	}
	path := l.responsePath
	if path == "" {
		path = "translatedText"
	}
	out, ok := lookup(doc, path)
	if !ok {
		return "", unexpected(data)
	}
	return out, nil
}

// renderPayload substitutes {{text}}, {{source}} and {{target}} with JSON string literals.
func renderPayload(tmpl, text, source, target string) string {
	quote := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	return strings.NewReplacer(
		"{{text}}", quote(text),
		"{{source}}", quote(source),
		"{{target}}", quote(target),
	).Replace(tmpl)
}

// lookup walks a dot-separated path through decoded JSON. Numeric segments index arrays.
func lookup(doc any, path string) (string, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return "", false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return "", false
			}
			cur = node[i]
		default:
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}
