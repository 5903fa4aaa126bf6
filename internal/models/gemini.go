package models

// Wire types for the Gemini generateContent REST endpoint.

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type GenerateContentRequest struct {
	SystemInstruction *Content          `json:"system_instruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// FirstText returns candidates[0].content.parts[0].text, or "" when any step is missing.
func (r *GenerateContentResponse) FirstText() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	content := r.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	return content.Parts[0].Text
}

// GeminiErrorResponse is the error body returned on non-2xx responses.
type GeminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
