// Package auth implements the WebSocket $connect authorizer: verify a Cognito
// ID token and return an IAM policy.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

const (
	policyVersion      = "2012-10-17"
	anonymousPrincipal = "anonymous"
)

var (
	ErrNoToken  = errors.New("no authorization token")
	ErrTokenUse = errors.New("token_use is not allowed")
)

var validTokenUses = map[string]bool{"id": true}

type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type Config struct {
	Region     string
	AccountID  string
	UserPoolID string
	ClientID   string
	APIID      string
}

// IssuerURL is the Cognito user pool issuer; its JWKS lives under
// /.well-known/jwks.json.
func IssuerURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// NewVerifier checks signature, issuer, audience and expiry against the
// user pool's published keys. Keys are fetched lazily and cached.
func NewVerifier(ctx context.Context, cfg Config) *oidc.IDTokenVerifier {
	issuer := IssuerURL(cfg.Region, cfg.UserPoolID)
	keys := oidc.NewRemoteKeySet(ctx, issuer+"/.well-known/jwks.json")
	return oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: cfg.ClientID})
}

// Request is the REQUEST authorizer event API Gateway sends for WebSocket
// APIs.
type Request struct {
	Type                  string            `json:"type"`
	MethodArn             string            `json:"methodArn"`
	Headers               map[string]string `json:"headers"`
	QueryStringParameters map[string]string `json:"queryStringParameters"`
	RequestContext        struct {
		EventType    string `json:"eventType"`
		ConnectionID string `json:"connectionId"`
		RouteKey     string `json:"routeKey"`
		APIID        string `json:"apiId"`
		Stage        string `json:"stage"`
	} `json:"requestContext"`
}

type Authorizer struct {
	verifier TokenVerifier
	cfg      Config
	log      *zap.Logger
}

func NewAuthorizer(v TokenVerifier, cfg Config, log *zap.Logger) *Authorizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authorizer{verifier: v, cfg: cfg, log: log}
}

// Authorize never returns an error: every failure becomes a Deny policy.
func (a *Authorizer) Authorize(ctx context.Context, req Request) events.APIGatewayCustomAuthorizerResponse {
	log := a.log.With(
		zap.String("connection_id", req.RequestContext.ConnectionID),
		zap.String("event_type", req.RequestContext.EventType))

	if req.RequestContext.EventType != "CONNECT" {
		log.Warn("not a CONNECT event")
		return a.deny()
	}

	raw := TokenFrom(req.Headers, req.QueryStringParameters)
	if raw == "" {
		log.Warn("rejecting connection", zap.Error(ErrNoToken))
		return a.deny()
	}

	sub, err := a.verify(ctx, raw)
	if err != nil {
		log.Warn("rejecting connection", zap.Error(err))
		return a.deny()
	}
	log.Info("connection authorized", zap.String("sub", sub))
	return a.allow(sub)
}

func (a *Authorizer) verify(ctx context.Context, raw string) (string, error) {
	tok, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	var claims struct {
		TokenUse string `json:"token_use"`
	}
	if err := tok.Claims(&claims); err != nil {
		return "", fmt.Errorf("decode claims: %w", err)
	}
	if !validTokenUses[claims.TokenUse] {
		return "", fmt.Errorf("%w: %q", ErrTokenUse, claims.TokenUse)
	}
	return tok.Subject, nil
}

// TokenFrom reads the Authorization header, lets an Authorization query
// parameter override it, and strips a Bearer prefix.
func TokenFrom(headers, query map[string]string) string {
	tok := lookup(headers, "Authorization")
	if q := lookup(query, "Authorization"); q != "" {
		tok = q
	}
	tok = strings.TrimSpace(tok)
	tok = strings.TrimPrefix(tok, "Bearer ")
	return strings.TrimSpace(tok)
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// InvokeResource covers every route and stage of the WebSocket API.
func (a *Authorizer) InvokeResource() string {
	return fmt.Sprintf("arn:aws:execute-api:%s:%s:%s*", a.cfg.Region, a.cfg.AccountID, a.cfg.APIID)
}

func (a *Authorizer) allow(sub string) events.APIGatewayCustomAuthorizerResponse {
	if sub == "" {
		sub = anonymousPrincipal
	}
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: sub,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: policyVersion,
			Statement: []events.IAMPolicyStatement{{
				Action:   []string{"execute-api:Invoke"},
				Effect:   "Allow",
				Resource: []string{a.InvokeResource()},
			}},
		},
		Context: map[string]interface{}{"sub": sub},
	}
}

func (a *Authorizer) deny() events.APIGatewayCustomAuthorizerResponse {
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: anonymousPrincipal,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: policyVersion,
			Statement: []events.IAMPolicyStatement{{
				Action:   []string{"*"},
				Effect:   "Deny",
				Resource: []string{"*"},
			}},
		},
	}
}
