package ai

import (
	"context"
	"os"

	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/sashabaranov/go-openai"
)

// Brief is the structured prompt handed to the content generator.
type Brief struct {
	Theme      string
	Setting    string
	Tone       string
	Scenario   string
	ClueType   models.ClueType
	TargetRole string
	Target     string
	Difficulty models.Difficulty
}

// Generator turns a brief into prose. It is fallible and potentially slow;
// callers are expected to fall back to deterministic templates on error.
type Generator interface {
	Generate(ctx context.Context, brief Brief) (string, error)
}

type Client struct {
	client *openai.Client
}

func NewClient() Client {
	return Client{
		client: openai.NewClient(os.Getenv("OPENAI_API_KEY")),
	}
}

const MaxTokens = 1024

const systemPrompt = `You write short, atmospheric clue texts for a social-deduction mystery game.
Answer with the clue text only, two to three sentences, no preamble.`

// Generate requests a single chat completion for the brief.
func (c Client) Generate(ctx context.Context, brief Brief) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     openai.GPT3Dot5Turbo1106,
			MaxTokens: MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: brief.prompt()},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}
	return completion.Choices[0].Message.Content, nil
}

func (b Brief) prompt() string {
	prompt := "Theme: " + b.Theme +
		"\nSetting: " + b.Setting +
		"\nTone: " + b.Tone +
		"\nClue type: " + string(b.ClueType) +
		"\nDifficulty: " + string(b.Difficulty)
	if b.Scenario != "" {
		prompt += "\nScenario: " + b.Scenario
	}
	if b.TargetRole != "" {
		prompt += "\nThe clue concerns a player whose role is: " + b.TargetRole
	}
	if b.Target != "" {
		prompt += "\nThe clue concerns the player known as: " + b.Target
	}
	return prompt
}
