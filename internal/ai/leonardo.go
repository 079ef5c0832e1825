package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	leonardoGenerateURL = "https://cloud.leonardo.ai/api/rest/v1/generations"
	leonardoPollDelay   = 2 * time.Second
	leonardoPollMax     = 15
)

// Leonardo implements ImageProvider against the Leonardo generation
// API. Generation is asynchronous server-side, so Generate submits a
// job and polls until an image URL is available.
type Leonardo struct {
	apiKey string
	client *http.Client
}

func NewLeonardo(apiKey string) *Leonardo {
	return &Leonardo{apiKey: apiKey, client: &http.Client{}}
}

func (l *Leonardo) Name() string { return "leonardo" }

func (l *Leonardo) Available() bool { return l.apiKey != "" }

type leoGenerateRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Num    int    `json:"num_images"`
}

type leoGenerateResponse struct {
	Job struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type leoPollResponse struct {
	Generation struct {
		Status string `json:"status"`
		Images []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

// Generate submits a generation job and polls for the resulting URL.
func (l *Leonardo) Generate(ctx context.Context, prompt string) (string, error) {
	if !l.Available() {
		return "", ErrNoProvider
	}

	genID, err := l.submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	for i := 0; i < leonardoPollMax; i++ {
		select {
		case <-time.After(leonardoPollDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		url, done, err := l.poll(ctx, genID)
		if err != nil {
			return "", err
		}
		if done {
			return url, nil
		}
	}
	return "", fmt.Errorf("generation %s did not complete in time", genID)
}

func (l *Leonardo) submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(leoGenerateRequest{Prompt: prompt, Width: 1024, Height: 768, Num: 1})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, leonardoGenerateURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed leoGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Job.GenerationID == "" {
		return "", fmt.Errorf("no generation id in response")
	}
	return parsed.Job.GenerationID, nil
}

func (l *Leonardo) poll(ctx context.Context, genID string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, leonardoGenerateURL+"/"+genID, nil)
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var parsed leoPollResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Generation.Status == "COMPLETE" && len(parsed.Generation.Images) > 0 {
		return parsed.Generation.Images[0].URL, true, nil
	}
	if parsed.Generation.Status == "FAILED" {
		return "", false, fmt.Errorf("generation %s failed", genID)
	}
	return "", false, nil
}
