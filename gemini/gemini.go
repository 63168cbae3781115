package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"municipal-sentinel/models"
)

const promptInspector = `
You are a Civil Engineer Inspector. Analyze this image for municipal infrastructure issues.

Tasks:
1. Decide whether the image shows municipal infrastructure at all. If it is unrelated (selfies, food, indoor scenes), set is_relevant to false.
2. Identify the primary defect (Pothole, Blocked Drainage, Heap of Trash, Fallen Pole, or 'None').
3. Estimate Severity (1-10) based on size and obstruction.
4. Estimate the material or equipment needed for the repair.

Output JSON only, no wrapping markdown:
{
    "is_relevant": bool,
    "defect_type": "string",
    "severity_score": int,
    "description": "short technical description",
    "estimated_material_needed": "string (e.g., 'Asphalt', 'Excavator')"
}
`

const promptStrategist = `
You are a City Planner. Prioritize this repair request.

Defect: %s (Severity: %d)
Location Context: %s (e.g., 'Main Highway', 'School Zone', 'Back Alley')

Rules:
- High traffic areas (Highways) multiply urgency.
- Safety risks (School zones) multiply urgency.

Output JSON only, no wrapping markdown:
{
    "priority_index": float (0.0 to 100.0),
    "justification": "Why this priority level?",
    "assigned_department": "Works / Sanitation / Power / General"
}
`

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
	Contents         []content        `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client talks to the Gemini generateContent REST API and implements both
// the classifier and the prioritizer oracle interfaces.
type Client struct {
	apiKey string
	model  string
	http   *http.Client
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) SourceName() string {
	return "Gemini"
}

func (c *Client) ClassifyImage(ctx context.Context, imageData []byte, notes string) (string, error) {
	parts := []part{{Text: promptInspector}}
	if notes != "" {
		parts = append(parts, part{Text: "Reporter notes: " + notes})
	}
	if len(imageData) > 0 {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(imageData),
			},
		})
	}

	reqBody := geminiRequest{
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
		Contents: []content{
			{
				Role:  "user",
				Parts: parts,
			},
		},
	}

	return c.generateContent(ctx, reqBody)
}

func (c *Client) PrioritizeDefect(ctx context.Context, cls *models.Classification, locationContext string) (string, error) {
	prompt := fmt.Sprintf(promptStrategist, cls.DefectType, cls.SeverityScore, locationContext)
	reqBody := geminiRequest{
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: prompt},
				},
			},
		},
	}
	return c.generateContent(ctx, reqBody)
}

func (c *Client) generateContent(ctx context.Context, body geminiRequest) (string, error) {
	// try v1beta first, then v1
	endpoints := []string{
		fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", c.model, c.apiKey),
		fmt.Sprintf("https://generativelanguage.googleapis.com/v1/models/%s:generateContent?key=%s", c.model, c.apiKey),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for _, ep := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewBuffer(data))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			continue
		}
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
			// retry next endpoint if available
			continue
		}
		var gr geminiResponse
		if err := json.Unmarshal(bodyBytes, &gr); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			continue
		}
		if len(gr.Candidates) == 0 {
			lastErr = fmt.Errorf("no candidates in response")
			continue
		}
		// find first text part
		for _, p := range gr.Candidates[0].Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
		lastErr = fmt.Errorf("no text part in response")
	}
	return "", lastErr
}
