package polish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notionhelper/internal/types"
)

type fakePolisher struct {
	out    string
	err    error
	calls  int
	system string
}

func (f *fakePolisher) Name() string { return "fake" }

func (f *fakePolisher) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	return f.out, f.err
}

func TestService_Polish(t *testing.T) {
	tests := []struct {
		name      string
		polisher  *fakePolisher
		budget    int
		body      string
		want      string
		polished  bool
		wantCalls int
	}{
		{name: "success", polisher: &fakePolisher{out: "  Dear team,\nrewritten  "}, body: "Hi", want: "Dear team,\nrewritten", polished: true, wantCalls: 1},
		{name: "provider error falls back", polisher: &fakePolisher{err: errors.New("503")}, body: "Hi", want: "Hi", wantCalls: 1},
		{name: "empty completion falls back", polisher: &fakePolisher{out: "   "}, body: "Hi", want: "Hi", wantCalls: 1},
		{name: "over budget is not sent", polisher: &fakePolisher{out: "x"}, budget: 10, body: strings.Repeat("word ", 200), want: strings.Repeat("word ", 200), wantCalls: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Service{
				Polisher: tt.polisher,
				Counter:  &TokenCounter{},
				Options:  Options{MaxInputTokens: tt.budget},
			}
			got, ok := s.Polish(context.Background(), tt.body)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.polished, ok)
			assert.Equal(t, tt.wantCalls, tt.polisher.calls)
		})
	}
}

func TestService_TooLargeError(t *testing.T) {
	s := &Service{Polisher: &fakePolisher{out: "x"}, Counter: &TokenCounter{}, Options: Options{MaxInputTokens: 1}}
	_, err := s.try(context.Background(), "some body")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt([]string{"[ADR: Auto Drawing Review]", "[INF: Data Infrastructure]"}, "Ada\nExample Corp")
	assert.Contains(t, p, "[ADR: Auto Drawing Review], [INF: Data Infrastructure]")
	assert.Contains(t, p, "Best regards,\" followed by:\nAda\nExample Corp")

	bare := SystemPrompt(nil, "")
	assert.NotContains(t, bare, "available project names")
}

func TestTokenCounter_Heuristic(t *testing.T) {
	c := &TokenCounter{}
	assert.False(t, c.Precise())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 3, c.Count("12345678"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "openai"})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = New(context.Background(), Options{Provider: "bard", APIKey: "k"})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	p, err := New(context.Background(), Options{Provider: "deepseek", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek", p.Name())
}

func TestOpenAIPolisher_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"deepseek-chat","choices":[{"index":0,"message":{"role":"assistant","content":"Dear team"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIPolisher(ProviderDeepSeek, Options{APIKey: "secret", BaseURL: srv.URL + "/", Model: DeepSeekModel})
	out, err := p.Complete(context.Background(), "system prompt", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Dear team", out)

	assert.Equal(t, DeepSeekModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Hi")
}

func TestOpenAIPolisher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	s := &Service{
		Polisher: NewOpenAIPolisher(ProviderOpenAI, Options{APIKey: "bad", BaseURL: srv.URL}),
		Counter:  &TokenCounter{},
	}
	out, ok := s.Polish(context.Background(), "original")
	assert.False(t, ok)
	assert.Equal(t, "original", out)
}
