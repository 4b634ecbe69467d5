package qna

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKB struct {
	in  *bedrockagentruntime.RetrieveAndGenerateInput
	out *bedrockagentruntime.RetrieveAndGenerateOutput
	err error
}

func (f *fakeKB) RetrieveAndGenerate(_ context.Context, in *bedrockagentruntime.RetrieveAndGenerateInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error) {
	f.in = in
	return f.out, f.err
}

type fakePrompts struct {
	value string
	err   error
}

func (f fakePrompts) Get(_ context.Context, _, fallback string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.value == "" {
		return fallback, nil
	}
	return f.value, nil
}

func kbOutput() *bedrockagentruntime.RetrieveAndGenerateOutput {
	return &bedrockagentruntime.RetrieveAndGenerateOutput{
		Output:    &types.RetrieveAndGenerateOutput{Text: aws.String("Machine learning is a field of AI.")},
		SessionId: aws.String("sess-9"),
		Citations: []types.Citation{{
			GeneratedResponsePart: &types.GeneratedResponsePart{
				TextResponsePart: &types.TextResponsePart{Text: aws.String("Machine learning is a field of AI.")},
			},
			RetrievedReferences: []types.RetrievedReference{{
				Content:  &types.RetrievalResultContent{Text: aws.String("ML studies algorithms...")},
				Location: &types.RetrievalResultLocation{S3Location: &types.RetrievalResultS3Location{Uri: aws.String("s3://kb/ml.pdf")}},
			}},
		}},
	}
}

func testConfig() Config {
	return Config{
		KnowledgeBaseID:  "KB123",
		ModelARN:         ModelARN("us-east-1", "anthropic.claude-3-haiku-20240307-v1:0"),
		GuardrailID:      "gr-1",
		GuardrailVersion: "1",
		DefaultPrompt:    "default $search_results$",
		PromptParam:      "/coursegen/qna-prompt",
	}
}

func TestParseQuestion(t *testing.T) {
	q, err := ParseQuestion(`{"user_question":" What is ML? ","course_name":"ML","week_number":"2","session_id":"s1"}`)
	require.NoError(t, err)
	assert.Equal(t, "What is ML?", q.UserQuestion)
	w, err := q.Week()
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 2, *w)

	_, err = ParseQuestion(`{"user_question":"  "}`)
	require.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = ParseQuestion("")
	require.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = ParseQuestion("{")
	require.Error(t, err)
}

func TestQuestion_Week(t *testing.T) {
	q := Question{WeekNumber: "3.0"}
	w, err := q.Week()
	require.NoError(t, err)
	assert.Equal(t, 3, *w)

	q = Question{}
	w, err = q.Week()
	require.NoError(t, err)
	assert.Nil(t, w)

	q = Question{WeekNumber: "three"}
	_, err = q.Week()
	require.Error(t, err)
}

func TestModelARN(t *testing.T) {
	assert.Equal(t,
		"arn:aws:bedrock:us-west-2::foundation-model/anthropic.claude-3-haiku-20240307-v1:0",
		ModelARN("us-west-2", "anthropic.claude-3-haiku-20240307-v1:0"))
}

func TestAnswer_BuildsRequest(t *testing.T) {
	kb := &fakeKB{out: kbOutput()}
	s := NewService(kb, fakePrompts{value: "override $search_results$"}, testConfig(), nil)

	ans, err := s.Answer(context.Background(), &Question{
		UserQuestion: "What is ML?",
		CourseName:   "ML",
		CourseID:     "c002",
		WeekNumber:   "2",
		SessionID:    "sess-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Machine learning is a field of AI.", ans.BotResponse)
	assert.Equal(t, "sess-9", ans.SessionID)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "s3://kb/ml.pdf", ans.Citations[0].Sources[0].URI)

	in := kb.in
	require.NotNil(t, in)
	assert.Equal(t, "What is ML?", aws.ToString(in.Input.Text))
	assert.Equal(t, "sess-1", aws.ToString(in.SessionId))

	cfg := in.RetrieveAndGenerateConfiguration
	assert.Equal(t, types.RetrieveAndGenerateTypeKnowledgeBase, cfg.Type)
	kbc := cfg.KnowledgeBaseConfiguration
	assert.Equal(t, "KB123", aws.ToString(kbc.KnowledgeBaseId))
	assert.Equal(t, "arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(kbc.ModelArn))

	gen := kbc.GenerationConfiguration
	assert.Equal(t, "gr-1", aws.ToString(gen.GuardrailConfiguration.GuardrailId))
	assert.Equal(t, float32(0), aws.ToFloat32(gen.InferenceConfig.TextInferenceConfig.Temperature))
	assert.Equal(t, "override $search_results$", aws.ToString(gen.PromptTemplate.TextPromptTemplate))

	vs := kbc.RetrievalConfiguration.VectorSearchConfiguration
	assert.Equal(t, int32(3), aws.ToInt32(vs.NumberOfResults))
	assert.Equal(t, types.SearchTypeHybrid, vs.OverrideSearchType)
	and, ok := vs.Filter.(*types.RetrievalFilterMemberAndAll)
	require.True(t, ok)
	assert.Len(t, and.Value, 3)
}

func TestAnswer_NoGuardrailNoSession(t *testing.T) {
	kb := &fakeKB{out: &bedrockagentruntime.RetrieveAndGenerateOutput{}}
	cfg := testConfig()
	cfg.GuardrailID = ""
	s := NewService(kb, fakePrompts{err: errors.New("ssm down")}, cfg, nil)

	ans, err := s.Answer(context.Background(), &Question{UserQuestion: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "", ans.BotResponse)
	assert.Empty(t, ans.Citations)

	gen := kb.in.RetrieveAndGenerateConfiguration.KnowledgeBaseConfiguration.GenerationConfiguration
	assert.Nil(t, gen.GuardrailConfiguration)
	assert.Equal(t, "default $search_results$", aws.ToString(gen.PromptTemplate.TextPromptTemplate))
	assert.Nil(t, kb.in.SessionId)
	assert.Nil(t, kb.in.RetrieveAndGenerateConfiguration.KnowledgeBaseConfiguration.RetrievalConfiguration.VectorSearchConfiguration.Filter)
}

func TestAnswer_Errors(t *testing.T) {
	s := NewService(&fakeKB{err: errors.New("ValidationException")}, nil, testConfig(), nil)
	_, err := s.Answer(context.Background(), &Question{UserQuestion: "Hi"})
	require.Error(t, err)

	_, err = s.Answer(context.Background(), &Question{UserQuestion: "Hi", WeekNumber: "x"})
	require.Error(t, err)
}
