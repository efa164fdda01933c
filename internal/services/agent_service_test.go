// internal/services/agent_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverink/coverink-backend/internal/config"
)

func newAgentFixture(t *testing.T, handler http.HandlerFunc) *AgentService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Agent: config.AgentConfig{
			BaseURL: server.URL,
			APIKey:  "agent-key",
			Timeout: 5,
		},
	}
	return NewAgentService(cfg)
}

func TestGenerateCoverLetter(t *testing.T) {
	svc := newAgentFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cover-letters", r.URL.Path)
		assert.Equal(t, "Bearer agent-key", r.Header.Get("Authorization"))

		var req GenerateLetterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "resume text", req.ResumeText)

		json.NewEncoder(w).Encode(GeneratedLetter{
			Content: "Dear hiring manager,",
			Model:   "agent-v2",
		})
	})

	letter, err := svc.GenerateCoverLetter(context.Background(), &GenerateLetterRequest{
		ResumeText:     "resume text",
		JobDescription: "job description",
	})

	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager,", letter.Content)
	assert.Equal(t, "agent-v2", letter.Model)
}

func TestGenerateCoverLetterAgentError(t *testing.T) {
	svc := newAgentFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream model unavailable"))
	})

	_, err := svc.GenerateCoverLetter(context.Background(), &GenerateLetterRequest{
		ResumeText:     "resume text",
		JobDescription: "job description",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGenerateCoverLetterEmptyContent(t *testing.T) {
	svc := newAgentFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GeneratedLetter{})
	})

	_, err := svc.GenerateCoverLetter(context.Background(), &GenerateLetterRequest{
		ResumeText:     "resume text",
		JobDescription: "job description",
	})

	require.Error(t, err)
}

func TestGenerateCoverLetterUnconfigured(t *testing.T) {
	svc := NewAgentService(&config.Config{})

	_, err := svc.GenerateCoverLetter(context.Background(), &GenerateLetterRequest{
		ResumeText:     "resume text",
		JobDescription: "job description",
	})

	assert.ErrorIs(t, err, ErrAgentUnavailable)
}
