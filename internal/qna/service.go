// Package qna answers student questions with Bedrock Knowledge Bases
// RetrieveAndGenerate, filtered to the student's course and week.
package qna

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coursegen/internal/course"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"go.uber.org/zap"
)

var ErrEmptyQuestion = errors.New("user_question is required")

type Client interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// PromptSource resolves the prompt template override.
type PromptSource interface {
	Get(ctx context.Context, name, fallback string) (string, error)
}

// Question is the qnaBot message body. learning_objective is accepted but
// not used for retrieval.
type Question struct {
	UserQuestion      string        `json:"user_question"`
	CourseName        string        `json:"course_name"`
	CourseID          string        `json:"course_id"`
	WeekNumber        course.Scalar `json:"week_number"`
	SessionID         string        `json:"session_id"`
	LearningObjective string        `json:"learning_objective"`
}

// Week parses week_number. An absent value returns nil.
func (q *Question) Week() (*int, error) {
	s := strings.TrimSpace(q.WeekNumber.String())
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil, fmt.Errorf("week_number %q is not a number", s)
		}
		n = int(f)
	}
	return &n, nil
}

func ParseQuestion(body string) (*Question, error) {
	var q Question
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyQuestion
	}
	if err := json.Unmarshal([]byte(body), &q); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}
	q.UserQuestion = strings.TrimSpace(q.UserQuestion)
	if q.UserQuestion == "" {
		return nil, ErrEmptyQuestion
	}
	return &q, nil
}

// Answer is returned to the client as the route response.
type Answer struct {
	BotResponse string     `json:"bot_response"`
	SessionID   string     `json:"session_id"`
	Citations   []Citation `json:"citations"`
}

type Citation struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

type Source struct {
	URI     string `json:"uri,omitempty"`
	Content string `json:"content,omitempty"`
}

type Config struct {
	KnowledgeBaseID  string
	ModelARN         string
	GuardrailID      string
	GuardrailVersion string
	NumResults       int
	PromptParam      string
	DefaultPrompt    string
}

// ModelARN is the foundation-model ARN RetrieveAndGenerate expects.
func ModelARN(region, modelID string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, modelID)
}

type Service struct {
	client  Client
	prompts PromptSource
	cfg     Config
	log     *zap.Logger
}

func NewService(c Client, prompts PromptSource, cfg Config, log *zap.Logger) *Service {
	if cfg.NumResults < 1 {
		cfg.NumResults = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: c, prompts: prompts, cfg: cfg, log: log}
}

func (s *Service) Answer(ctx context.Context, q *Question) (*Answer, error) {
	week, err := q.Week()
	if err != nil {
		return nil, err
	}

	tmpl := s.cfg.DefaultPrompt
	if s.prompts != nil {
		if tmpl, err = s.prompts.Get(ctx, s.cfg.PromptParam, s.cfg.DefaultPrompt); err != nil {
			s.log.Warn("prompt override unavailable, using default", zap.Error(err))
			tmpl = s.cfg.DefaultPrompt
		}
	}

	in := s.buildInput(q, week, tmpl)
	out, err := s.client.RetrieveAndGenerate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("bedrock RetrieveAndGenerate: %w", err)
	}

	ans := &Answer{
		SessionID: aws.ToString(out.SessionId),
		Citations: citations(out.Citations),
	}
	if out.Output != nil {
		ans.BotResponse = aws.ToString(out.Output.Text)
	}
	s.log.Info("qna answered",
		zap.String("session_id", ans.SessionID),
		zap.Int("citations", len(ans.Citations)))
	return ans, nil
}

func (s *Service) buildInput(q *Question, week *int, tmpl string) *bedrockagentruntime.RetrieveAndGenerateInput {
	gen := &types.GenerationConfiguration{
		InferenceConfig: &types.InferenceConfig{
			TextInferenceConfig: &types.TextInferenceConfig{Temperature: aws.Float32(0)},
		},
	}
	if strings.TrimSpace(tmpl) != "" {
		gen.PromptTemplate = &types.PromptTemplate{TextPromptTemplate: aws.String(tmpl)}
	}
	if s.cfg.GuardrailID != "" {
		gen.GuardrailConfiguration = &types.GuardrailConfiguration{
			GuardrailId:      aws.String(s.cfg.GuardrailID),
			GuardrailVersion: aws.String(s.cfg.GuardrailVersion),
		}
	}

	in := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{Text: aws.String(q.UserQuestion)},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId:         aws.String(s.cfg.KnowledgeBaseID),
				ModelArn:                aws.String(s.cfg.ModelARN),
				GenerationConfiguration: gen,
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
						Filter:             Filter(q.CourseName, q.CourseID, week),
						NumberOfResults:    aws.Int32(int32(s.cfg.NumResults)),
						OverrideSearchType: types.SearchTypeHybrid,
					},
				},
			},
		},
	}
	if sid := strings.TrimSpace(q.SessionID); sid != "" {
		in.SessionId = aws.String(sid)
	}
	return in
}

func citations(in []types.Citation) []Citation {
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		var cit Citation
		if p := c.GeneratedResponsePart; p != nil && p.TextResponsePart != nil {
			cit.Text = aws.ToString(p.TextResponsePart.Text)
		}
		for _, ref := range c.RetrievedReferences {
			var src Source
			if ref.Content != nil {
				src.Content = aws.ToString(ref.Content.Text)
			}
			if ref.Location != nil && ref.Location.S3Location != nil {
				src.URI = aws.ToString(ref.Location.S3Location.Uri)
			}
			cit.Sources = append(cit.Sources, src)
		}
		out = append(out, cit)
	}
	return out
}
