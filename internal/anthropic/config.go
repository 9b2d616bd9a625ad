package anthropic

const (
	DefaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

type Config struct {
	baseURL string
	apiKey  string
}

func NewConfig(baseURL, apiKey string) *Config {
	return &Config{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}
