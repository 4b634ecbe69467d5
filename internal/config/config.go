package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is shared by every Lambda in the repo. Each entry point only reads the
// fields it needs and checks them with Require.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// WebSocket plumbing
	ConnectionsTable     string        `envconfig:"CONNECTIONS_TABLE"`
	ConnectionTTL        time.Duration `envconfig:"CONNECTION_TTL" default:"24h"`
	WebsocketEndpointURL string        `envconfig:"WEBSOCKET_ENDPOINT_URL"`
	OutlineQueueURL      string        `envconfig:"OUTLINE_QUEUE_URL"`
	ContentQueueURL      string        `envconfig:"CONTENT_QUEUE_URL"`

	// Job tracking + alerts (optional)
	JobsTable      string        `envconfig:"JOBS_TABLE"`
	JobTTL         time.Duration `envconfig:"JOB_TTL" default:"168h"`
	JobLease       time.Duration `envconfig:"JOB_LEASE" default:"15m"`
	AlertsTopicARN string        `envconfig:"ALERTS_TOPIC_ARN"`

	// Generation workers
	ModelID         string        `envconfig:"MODEL_ID"`
	OutputBucket    string        `envconfig:"OUTPUT_BUCKET"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"2"`
	BedrockTimeout  time.Duration `envconfig:"BEDROCK_TIMEOUT" default:"5m"`
	SDKMaxAttempts  int           `envconfig:"SDK_MAX_ATTEMPTS" default:"5"`
	DocumentWorkers int           `envconfig:"DOCUMENT_WORKERS" default:"4"`

	// QnA bot. The model id is normally set as the mixed-case QnA_MODEL_ID,
	// which envconfig cannot look up; Load reads it directly.
	KBID             string `envconfig:"KB_ID"`
	QnAModelID       string `envconfig:"QNA_MODEL_ID"`
	GuardrailID      string `envconfig:"GUARDRAIL_ID"`
	GuardrailVersion string `envconfig:"GUARDRAIL_VERSION"`
	QnAPromptParam   string `envconfig:"QNA_PROMPT_PARAM"`
	QnANumResults    int    `envconfig:"QNA_NUM_RESULTS" default:"3"`

	// KB sync
	KnowledgeBaseID string `envconfig:"KNOWLEDGE_BASE_ID"`
	DataSourceID    string `envconfig:"DATA_SOURCE_ID"`

	// JWT authorizer
	APIRegion          string `envconfig:"API_REGION"`
	AccountID          string `envconfig:"ACCOUNT_ID"`
	CognitoUserPoolID  string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoAppClientID string `envconfig:"COGNITO_APP_CLIENT_ID"`
	WebsocketAPIID     string `envconfig:"WEBSOCKET_API_ID"`
}

// qnaModelIDEnv takes precedence over QNA_MODEL_ID.
const qnaModelIDEnv = "QnA_MODEL_ID"

// Load reads a local .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if v := strings.TrimSpace(os.Getenv(qnaModelIDEnv)); v != "" {
		c.QnAModelID = v
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
	if c.DocumentWorkers < 1 {
		c.DocumentWorkers = 1
	}
	return &c, nil
}

// Require takes name/value pairs and reports every name whose value is blank.
func Require(pairs ...string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("require: odd number of arguments")
	}
	var missing []string
	for i := 0; i < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env %s", strings.Join(missing, ", "))
	}
	return nil
}
