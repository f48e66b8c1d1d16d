// Package translate calls the MyMemory machine-translation service. Every
// caller treats a failure as "keep the original text", so errors here never
// reach a client.
package translate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Translator converts text between two ISO language codes.
type Translator interface {
	Translate(text, from, to string) (string, error)
}

// DefaultBaseURL is the public MyMemory endpoint.
const DefaultBaseURL = "https://api.mymemory.translated.net"

// queryLimit keeps each request comfortably below the service's 500
// character ceiling.
const queryLimit = 300

// Client is an HTTP Translator against a MyMemory-compatible endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a translation client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.Number `json:"responseStatus"`
}

// Translate converts text from one language code to another. Texts longer
// than the per-query limit are split on word boundaries and translated
// chunk by chunk.
func (c *Client) Translate(text, from, to string) (string, error) {
	if from == to || text == "" {
		return text, nil
	}

	var out strings.Builder
	for _, chunk := range splitQueries(text, queryLimit) {
		translated, err := c.translateChunk(chunk, from, to)
		if err != nil {
			return "", err
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(translated)
	}
	return out.String(), nil
}

func (c *Client) translateChunk(chunk, from, to string) (string, error) {
	query := url.Values{}
	query.Set("q", chunk)
	query.Set("langpair", from+"|"+to)

	resp, err := c.http.Get(c.baseURL + "/get?" + query.Encode())
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: unexpected status %s", resp.Status)
	}

	var payload myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if status, err := payload.ResponseStatus.Int64(); err != nil || status != http.StatusOK {
		return "", fmt.Errorf("translate: service refused the language pair %s|%s", from, to)
	}
	return payload.ResponseData.TranslatedText, nil
}

// splitQueries breaks text into chunks of at most limit bytes, splitting on
// spaces so no word is cut in half. A single overlong word becomes its own
// chunk.
func splitQueries(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Noop is a Translator that returns the text unchanged. Used when
// translation is disabled and in tests.
type Noop struct{}

// Translate returns text as-is.
func (Noop) Translate(text, from, to string) (string, error) {
	return text, nil
}
