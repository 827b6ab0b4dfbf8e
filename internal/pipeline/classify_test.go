package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want OutputType
	}{
		{"error marker", "error: cannot find package", OutputError},
		{"traceback", "Traceback (most recent call last):", OutputError},
		{"blocker", "I'm blocked on the missing API key", OutputBlocker},
		{"cannot proceed", "I cannot proceed without credentials", OutputBlocker},
		{"question", "Should I also update the docs?", OutputQuestion},
		{"completion", "The feature is implemented and finished.", OutputCompletion},
		{"status default", "Still working through the handlers.", OutputStatusUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ruleClassify(tt.text)
			assert.Equal(t, tt.want, got.OutputType)
		})
	}
}

func TestClassify_LLMResult(t *testing.T) {
	llm := &fakeLLM{out: `{"output_type": "QUESTION", "confidence": 0.9, "reason": "asks user"}`}
	c := &Classifier{LLM: llm}

	got := c.Classify(context.Background(), "Which database should I use?")
	assert.Equal(t, OutputQuestion, got.OutputType)
	assert.InDelta(t, 0.9, got.Confidence, 0.001)
}

func TestClassify_LLMJSONWrapped(t *testing.T) {
	llm := &fakeLLM{out: "Here you go:\n{\"output_type\": \"COMPLETION\", \"confidence\": 0.8, \"reason\": \"done\"}\nthanks"}
	c := &Classifier{LLM: llm}

	got := c.Classify(context.Background(), "All finished, pushed a1b2c3d.")
	assert.Equal(t, OutputCompletion, got.OutputType)
}

func TestClassify_LLMFailureFallsBackToRules(t *testing.T) {
	llm := &fakeLLM{err: errors.New("model down")}
	c := &Classifier{LLM: llm}

	got := c.Classify(context.Background(), "error: boom")
	assert.Equal(t, OutputError, got.OutputType)
}

func TestClassify_UnknownTypeFallsBackToRules(t *testing.T) {
	llm := &fakeLLM{out: `{"output_type": "SOMETHING_ELSE", "confidence": 0.9}`}
	c := &Classifier{LLM: llm}

	got := c.Classify(context.Background(), "Still going.")
	assert.Equal(t, OutputStatusUpdate, got.OutputType)
}

func TestRejectedCompletion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			"hedged claim without evidence",
			"I think the fix is done, it should work now.",
			true,
		},
		{
			"claim with commit evidence",
			"Done, it should work. Committed as a1b2c3d.",
			false,
		},
		{
			"confident claim without evidence",
			"The migration is complete and verified against staging.",
			false,
		},
		{
			"not a completion at all",
			"It might take a while, still probably halfway.",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRejectedCompletion(tt.text))
		})
	}
}

func TestClassify_MarksRejectedCompletion(t *testing.T) {
	llm := &fakeLLM{out: `{"output_type": "COMPLETION", "confidence": 0.7, "reason": "claims done"}`}
	c := &Classifier{LLM: llm}

	got := c.Classify(context.Background(), "I believe it's fixed, should work now.")
	assert.Equal(t, OutputCompletion, got.OutputType)
	assert.True(t, got.WasRejectedCompletion)
}
