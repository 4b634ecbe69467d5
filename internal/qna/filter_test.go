package qna

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrJSON(t *testing.T, a types.FilterAttribute) (string, string) {
	t.Helper()
	b, err := a.Value.MarshalSmithyDocument()
	require.NoError(t, err)
	return aws.ToString(a.Key), string(b)
}

func TestFilter_AllConditions(t *testing.T) {
	week := 2
	f := Filter("Fundamentals of Machine Learning", "c002", &week)

	and, ok := f.(*types.RetrievalFilterMemberAndAll)
	require.True(t, ok)
	require.Len(t, and.Value, 3)

	eq, ok := and.Value[0].(*types.RetrievalFilterMemberEquals)
	require.True(t, ok)
	k, v := attrJSON(t, eq.Value)
	assert.Equal(t, "course_name", k)
	assert.JSONEq(t, `"Fundamentals of Machine Learning"`, v)

	eq, ok = and.Value[1].(*types.RetrievalFilterMemberEquals)
	require.True(t, ok)
	k, v = attrJSON(t, eq.Value)
	assert.Equal(t, "course_id", k)
	assert.JSONEq(t, `"c002"`, v)

	le, ok := and.Value[2].(*types.RetrievalFilterMemberLessThanOrEquals)
	require.True(t, ok)
	k, v = attrJSON(t, le.Value)
	assert.Equal(t, "week", k)
	assert.JSONEq(t, `2`, v)
}

func TestFilter_SkipsEmptyCourseID(t *testing.T) {
	week := 1
	f := Filter("ML", "", &week)
	and, ok := f.(*types.RetrievalFilterMemberAndAll)
	require.True(t, ok)
	assert.Len(t, and.Value, 2)
}

func TestFilter_SingleConditionIsBare(t *testing.T) {
	f := Filter("ML", "", nil)
	_, ok := f.(*types.RetrievalFilterMemberEquals)
	assert.True(t, ok)
}

func TestFilter_None(t *testing.T) {
	assert.Nil(t, Filter("", "", nil))
}
