// Package params reads overrides from SSM Parameter Store.
package params

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver caches parameter values for the life of the process, so a Lambda
// reads each parameter once per cold start.
type Resolver struct {
	ssm SSMClient

	mu    sync.Mutex
	cache map[string]string
}

func NewResolver(c SSMClient) *Resolver {
	return &Resolver{ssm: c, cache: map[string]string{}}
}

// Get returns the decrypted value of name. A missing parameter yields
// fallback; other errors are returned.
func (r *Resolver) Get(ctx context.Context, name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if r == nil || r.ssm == nil || name == "" {
		return fallback, nil
	}

	r.mu.Lock()
	v, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return v, nil
	}

	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			v = fallback
		} else {
			return "", fmt.Errorf("ssm GetParameter %s: %w", name, err)
		}
	} else if out.Parameter != nil {
		v = aws.ToString(out.Parameter.Value)
	}
	if strings.TrimSpace(v) == "" {
		v = fallback
	}

	r.mu.Lock()
	r.cache[name] = v
	r.mu.Unlock()
	return v, nil
}
