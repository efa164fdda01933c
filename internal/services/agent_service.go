// internal/services/agent_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coverink/coverink-backend/internal/config"
)

// ErrAgentUnavailable means the generation backend is not configured or did
// not answer. Handlers map it to a 503.
var ErrAgentUnavailable = errors.New("generation agent unavailable")

// AgentService calls the external AI agent that drafts cover letters from a
// resume and a job description.
type AgentService struct {
	cfg    *config.Config
	client *http.Client
}

type GenerateLetterRequest struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
	Tone           string `json:"tone,omitempty"`
	Language       string `json:"language,omitempty"`
}

type GeneratedLetter struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

func NewAgentService(cfg *config.Config) *AgentService {
	timeout := time.Duration(cfg.Agent.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AgentService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// GenerateCoverLetter sends the resume and job description to the agent and
// returns the drafted letter.
func (s *AgentService) GenerateCoverLetter(ctx context.Context, req *GenerateLetterRequest) (*GeneratedLetter, error) {
	if s.cfg.Agent.BaseURL == "" {
		return nil, ErrAgentUnavailable
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.Agent.BaseURL+"/v1/cover-letters", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.Agent.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.Agent.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, string(payload))
	}

	var letter GeneratedLetter
	if err := json.NewDecoder(resp.Body).Decode(&letter); err != nil {
		return nil, fmt.Errorf("failed to decode agent response: %w", err)
	}
	if letter.Content == "" {
		return nil, errors.New("agent returned an empty letter")
	}

	return &letter, nil
}
