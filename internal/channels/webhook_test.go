package channels

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookClient_RejectsNonHTTPScheme(t *testing.T) {
	client := NewWebhookClient()

	err := client.CallWebhook(context.Background(), "POST", "ftp://example.com/hook", nil, "{}")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestWebhookClient_SendsConfiguredRequest(t *testing.T) {
	var gotMethod, gotHeader, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Signature")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewWebhookClient()
	err := client.CallWebhook(context.Background(), "put", server.URL,
		map[string]string{"X-Signature": "sig123"}, `{"hello":"world"}`)

	assert.NoError(t, err)
	assert.Equal(t, "PUT", gotMethod)
	assert.Equal(t, "sig123", gotHeader)
	assert.Equal(t, `{"hello":"world"}`, gotBody)
}

func TestWebhookClient_DefaultsToPost(t *testing.T) {
	var gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewWebhookClient()
	err := client.CallWebhook(context.Background(), "", server.URL, nil, "")

	assert.NoError(t, err)
	assert.Equal(t, "POST", gotMethod)
}

func TestWebhookClient_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewWebhookClient()
	err := client.CallWebhook(context.Background(), "POST", server.URL, nil, "{}")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestBuildEmailHTML(t *testing.T) {
	html, err := buildEmailHTML("New comment from Jo", "Jo wrote: amazing!")
	assert.NoError(t, err)
	assert.Contains(t, html, "New comment from Jo")
	assert.Contains(t, html, "Jo wrote: amazing!")
}
