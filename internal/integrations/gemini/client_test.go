package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/interview-agent")
	require.Error(t, err)

	_, err = NewClient(&fakeGetter{}, "  ")
	require.Error(t, err)

	_, err = NewClient(&fakeGetter{}, "/interview-agent", WithModel(" "))
	require.Error(t, err)
}

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"gk-from-ssm"}`}
	g.onCall = func() { calls++ }
	c, err := NewClient(g, "/interview-agent")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gk-from-ssm", key)

	_, _ = c.resolveAPIKey(context.Background())
	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}

func TestGenerate_HappyPath(t *testing.T) {
	var gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "  the reply  "}}}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: `{"token":"gk"}`}, "/interview-agent",
		WithBaseURL(srv.URL), WithModel("gemini-1.5-pro-latest"))
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	require.Equal(t, "the reply", out)
	require.Equal(t, "/models/gemini-1.5-pro-latest:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Equal(t, "the prompt", gotBody.Contents[0].Parts[0].Text)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"gk"}`}, "/interview-agent")
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "  ")
	require.Error(t, err)
}

func TestGenerate_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: `{"token":"gk"}`}, "/interview-agent", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "the prompt")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(&fakeGetter{val: `{"token":"gk"}`}, "/interview-agent", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "the prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no candidates")
}

func TestGenerate_KeyFetchFailureSurfaces(t *testing.T) {
	c, err := NewClient(&fakeGetter{err: errors.New("ssm down")}, "/interview-agent")
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "the prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "paramstore")
}

func TestFetchAPIKey_MalformedPayload(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `not json`}, "name")
	require.Error(t, err)

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"token":""}`}, "name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}
