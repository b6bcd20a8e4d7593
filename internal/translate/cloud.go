package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

const (
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
	deeplProURL  = "https://api.deepl.com/v2/translate"
	googleURL    = "https://translation.googleapis.com/language/translate/v2"
	yandexURL    = "https://translate.api.cloud.yandex.net/translate/v2/translate"
)

// DeepL uses the DeepL v2 API.
type DeepL struct {
	client *http.Client
	url    string
	key    string
	source string
	target string
}

func (d *DeepL) Translate(ctx context.Context, text string) (string, error) {
	body := map[string]any{
		"text":        []string{text},
		"source_lang": strings.ToUpper(d.source),
		"target_lang": strings.ToUpper(d.target),
	}
	data, err := postJSON(ctx, d.client, d.url, map[string]string{"Authorization": "DeepL-Auth-Key " + d.key}, body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Translations) == 0 {
		return "", unexpected(data)
	}
	return resp.Translations[0].Text, nil
}

// Google uses the Cloud Translation v2 API.
type Google struct {
	client *http.Client
	url    string
	key    string
	source string
	target string
}

func (g *Google) Translate(ctx context.Context, text string) (string, error) {
	body := map[string]string{"q": text, "source": g.source, "target": g.target, "format": "text"}
	endpoint := g.url + "?key=" + url.QueryEscape(g.key)
	data, err := postJSON(ctx, g.client, endpoint, nil, body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Data.Translations) == 0 {
		return "", unexpected(data)
	}
	return resp.Data.Translations[0].TranslatedText, nil
}

// Yandex uses the Yandex Cloud Translate v2 API.
type Yandex struct {
	client *http.Client
	url    string
	key    string
	folder string
	source string
	target string
}

func (y *Yandex) Translate(ctx context.Context, text string) (string, error) {
	body := map[string]any{
		"texts":              []string{text},
		"sourceLanguageCode": y.source,
		"targetLanguageCode": y.target,
	}
	if y.folder != "" {
		body["folderId"] = y.folder
	}
	data, err := postJSON(ctx, y.client, y.url, map[string]string{"Authorization": "Api-Key " + y.key}, body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Translations) == 0 {
		return "", unexpected(data)
	}
	return resp.Translations[0].Text, nil
}
