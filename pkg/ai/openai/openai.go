package openai

import (
	"github.com/OFFIS-RIT/parversion/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient implements ai.Client on the chat completions API with
// JSON schema structured output.
//
// An OpenAIClient should be created using NewOpenAIClient.
type OpenAIClient struct {
	ai.MetricsRecorder

	model       string
	temperature float64
	chatURL     string

	ChatClient *openai.Client
}

// NewOpenAIClientParams defines the configuration parameters for creating
// a new OpenAIClient.
//
// ChatURL may be empty for the public API. It also accepts any endpoint
// speaking the OpenAI protocol.
type NewOpenAIClientParams struct {
	Model       string
	Temperature float64

	ChatURL string
	ChatKey string
}

// NewOpenAIClient creates an OpenAIClient. The client is nil when no key is
// given, in which case every request fails.
func NewOpenAIClient(params NewOpenAIClientParams) *OpenAIClient {
	model := params.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIClient{
		model:       model,
		temperature: params.Temperature,
		chatURL:     params.ChatURL,
		ChatClient:  newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

var _ ai.Client = (*OpenAIClient)(nil)
