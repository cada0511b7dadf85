// Package llm drafts feedback comments for a graded copy through an
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/classbook/internal/llm/prompts"
	"github.com/pavelanni/classbook/internal/model"
	"github.com/pavelanni/classbook/internal/rubric"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// DraftRequest is the graded copy to comment on.
type DraftRequest struct {
	Evaluation model.Evaluation
	Rubric     model.Rubric
	Details    []model.CriterionDetail
	Comments   string
	Tone       prompts.Tone
}

type draftResponse struct {
	Comment string `json:"comment"`
}

// DraftComment asks the model for a short comment addressed to the student.
func (c *Client) DraftComment(ctx context.Context, req DraftRequest) (string, error) {
	if req.Tone == "" {
		req.Tone = prompts.ToneNeutral
	}
	lines := ScoreLines(req.Rubric, req.Details)
	total := 0.0
	for _, d := range req.Details {
		total += d.Points
	}
	maxPoints := req.Evaluation.MaxPoints
	if maxPoints == 0 {
		maxPoints = req.Rubric.TotalPoints
	}

	system, err := prompts.BuildFeedbackPrompt(req.Tone, prompts.FeedbackData{
		Evaluation: req.Evaluation.Name,
		Subject:    req.Evaluation.Subject,
		Rubric:     req.Rubric.Name,
		Total:      total,
		MaxPoints:  maxPoints,
		Lines:      lines,
		Comments:   req.Comments,
	})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: "Draft the comment."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var out draftResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	comment := strings.TrimSpace(out.Comment)
	if comment == "" {
		return "", errors.New("LLM returned an empty comment")
	}
	return comment, nil
}

// ScoreLines pairs every rubric leaf with the points found in details.
// Leaves without a matching detail score 0.
func ScoreLines(rb model.Rubric, details []model.CriterionDetail) []prompts.Line {
	leaves := rubric.Leaves(rb)
	lines := make([]prompts.Line, 0, len(leaves))
	for _, l := range leaves {
		lines = append(lines, prompts.Line{
			Label:  l.Label,
			Points: leafPoints(details, l),
			Cap:    l.Cap,
		})
	}
	return lines
}

func leafPoints(details []model.CriterionDetail, l rubric.Leaf) float64 {
	for _, d := range details {
		if d.ID != l.CriterionID {
			continue
		}
		if l.SubCriterionID == "" {
			return d.Points
		}
		for _, s := range d.SubCriteria {
			if s.ID == l.SubCriterionID {
				return s.Points
			}
		}
	}
	return 0
}
