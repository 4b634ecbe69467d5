package qna

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// Metadata keys set on knowledge-base documents.
const (
	KeyCourseName = "course_name"
	KeyCourseID   = "course_id"
	KeyWeek       = "week"
)

// Filter restricts retrieval to one course and to weeks up to week.
// Empty values and a nil week add no condition. Bedrock rejects andAll with
// fewer than two members, so a single condition is returned on its own and
// no conditions yields nil.
func Filter(courseName, courseID string, week *int) types.RetrievalFilter {
	var conds []types.RetrievalFilter
	if courseName != "" {
		conds = append(conds, equals(KeyCourseName, courseName))
	}
	if courseID != "" {
		conds = append(conds, equals(KeyCourseID, courseID))
	}
	if week != nil {
		conds = append(conds, &types.RetrievalFilterMemberLessThanOrEquals{Value: types.FilterAttribute{
			Key:   aws.String(KeyWeek),
			Value: document.NewLazyDocument(*week),
		}})
	}

	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return &types.RetrievalFilterMemberAndAll{Value: conds}
	}
}

func equals(key, value string) types.RetrievalFilter {
	return &types.RetrievalFilterMemberEquals{Value: types.FilterAttribute{
		Key:   aws.String(key),
		Value: document.NewLazyDocument(value),
	}}
}
