package veo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := NewClient(context.Background())
	require.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(context.Background(), WithAPIKey("test-key"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())

	c, err = NewClient(context.Background(), WithAPIKey("test-key"), WithModel("veo-3.0-generate-preview"))
	require.NoError(t, err)
	assert.Equal(t, "veo-3.0-generate-preview", c.Model())
}

func TestSDKClient_ArgumentValidation(t *testing.T) {
	c, err := NewClient(context.Background(), WithAPIKey("test-key"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Submit(ctx, "  ", SubmitOptions{})
	assert.ErrorIs(t, err, ErrPromptRequired)

	_, err = c.Poll(ctx, "")
	assert.ErrorIs(t, err, ErrOperationNameRequired)

	_, err = c.Download(ctx, "")
	assert.ErrorIs(t, err, ErrVideoURIRequired)
}

func TestSDKClient_Submit(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"models/veo-2.0-generate-001/operations/op123","done":false}`))
	}))
	defer server.Close()

	c, err := NewClient(context.Background(), WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	op, err := c.Submit(context.Background(), "a cat", SubmitOptions{AspectRatio: "16:9", PersonGeneration: "dont_allow"})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "veo-2.0-generate-001:predictLongRunning"), gotPath)
	assert.Equal(t, "models/veo-2.0-generate-001/operations/op123", op.Name)
	assert.False(t, op.Done)
	assert.Contains(t, gotBody, "instances")
}

func TestSDKClient_Poll_OperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"models/veo/operations/op123","done":true,"error":{"code":3,"message":"prompt blocked"}}`))
	}))
	defer server.Close()

	c, err := NewClient(context.Background(), WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	op, err := c.Poll(context.Background(), "models/veo/operations/op123")
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.Equal(t, "prompt blocked (code 3)", op.Error)
}

func TestSDKClient_Submit_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
	}))
	defer server.Close()

	c, err := NewClient(context.Background(), WithAPIKey("bad-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), "a cat", SubmitOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "veo: generate videos")
}

func TestFromSDK(t *testing.T) {
	t.Run("pending operation", func(t *testing.T) {
		op := fromSDK(&genai.GenerateVideosOperation{Name: "op1"})
		assert.Equal(t, Operation{Name: "op1"}, op)
	})

	t.Run("finished with videos", func(t *testing.T) {
		op := fromSDK(&genai.GenerateVideosOperation{
			Name: "op1",
			Done: true,
			Response: &genai.GenerateVideosResponse{
				GeneratedVideos: []*genai.GeneratedVideo{
					{Video: &genai.Video{URI: "https://files/v1", MIMEType: "video/mp4"}},
					nil,
					{Video: nil},
					{Video: &genai.Video{VideoBytes: []byte{1, 2, 3}}},
				},
				RAIMediaFilteredReasons: []string{"people"},
			},
		})

		require.Len(t, op.Videos, 2)
		assert.True(t, op.Done)
		assert.Empty(t, op.Error)
		assert.Equal(t, "https://files/v1", op.Videos[0].URI)
		assert.Equal(t, "video/mp4", op.Videos[0].MIMEType)
		assert.Equal(t, []byte{1, 2, 3}, op.Videos[1].Data)
		assert.Equal(t, []string{"people"}, op.FilteredReasons)
	})

	t.Run("finished with error", func(t *testing.T) {
		op := fromSDK(&genai.GenerateVideosOperation{
			Name:  "op1",
			Done:  true,
			Error: map[string]any{"code": float64(8), "message": "quota exceeded"},
		})
		assert.Equal(t, "quota exceeded (code 8)", op.Error)
	})
}

func TestOperationError(t *testing.T) {
	assert.Equal(t, "boom", operationError(map[string]any{"message": "boom"}))
	assert.Equal(t, "code=13 status=INTERNAL", operationError(map[string]any{"status": "INTERNAL", "code": 13}))
}
