package parser

import (
	"encoding/json"
	"strings"

	"github.com/apex/log"

	"municipal-sentinel/models"
)

// classificationPayload mirrors the vision oracle response contract.
// Pointer fields distinguish "absent" from zero values where the
// distinction matters.
type classificationPayload struct {
	IsRelevant    *bool  `json:"is_relevant"`
	DefectType    string `json:"defect_type"`
	SeverityScore int    `json:"severity_score"`
	Description   string `json:"description"`
	Material      string `json:"estimated_material_needed"`
	Error         string `json:"error"`
}

// prioritizationPayload mirrors the planner oracle response contract.
type prioritizationPayload struct {
	PriorityIndex float64 `json:"priority_index"`
	Justification string  `json:"justification"`
	Department    string  `json:"assigned_department"`
	Error         string  `json:"error"`
}

// ExtractJSONFromMarkdown extracts JSON from markdown code blocks
func ExtractJSONFromMarkdown(response string) string {
	// Look for JSON code blocks with ``` markers
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	// Extract content between the markers
	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// ParseClassification decodes a vision oracle response. It never fails:
// malformed content and error-shaped payloads both decode to a zero-value
// classification, which the pipeline degrades to default report fields.
// An absent is_relevant flag means the oracle predates the relevance gate
// and the image is assumed relevant.
func ParseClassification(response string) *models.Classification {
	cleaned := ExtractJSONFromMarkdown(strings.TrimSpace(response))

	var payload classificationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		log.Warnf("Unparseable classification payload, falling back to defaults: %v", err)
		return &models.Classification{IsRelevant: true}
	}
	if payload.Error != "" {
		log.Warnf("Classifier returned an error payload: %s", payload.Error)
		return &models.Classification{IsRelevant: true}
	}

	relevant := true
	if payload.IsRelevant != nil {
		relevant = *payload.IsRelevant
	}
	return &models.Classification{
		IsRelevant:    relevant,
		DefectType:    payload.DefectType,
		SeverityScore: payload.SeverityScore,
		Description:   payload.Description,
		Material:      payload.Material,
	}
}

// ParsePrioritization decodes a planner oracle response with the same
// degrade-to-defaults behavior as ParseClassification.
func ParsePrioritization(response string) *models.Prioritization {
	cleaned := ExtractJSONFromMarkdown(strings.TrimSpace(response))

	var payload prioritizationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		log.Warnf("Unparseable prioritization payload, falling back to defaults: %v", err)
		return &models.Prioritization{}
	}
	if payload.Error != "" {
		log.Warnf("Prioritizer returned an error payload: %s", payload.Error)
		return &models.Prioritization{}
	}

	return &models.Prioritization{
		PriorityIndex: payload.PriorityIndex,
		Justification: payload.Justification,
		Department:    payload.Department,
	}
}
