// Package documents reads reference PDFs from S3 and writes generated JSON back.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	s3      S3API
	workers int
	log     *zap.Logger

	extract   func([]byte) (string, error)
	pageCount func([]byte) (int, error)
}

func NewStore(api S3API, workers int, log *zap.Logger) *Store {
	if workers < 1 {
		workers = 1
	}
	return &Store{
		s3:        api,
		workers:   workers,
		log:       log.With(zap.String("system", "documents")),
		extract:   ExtractPDFText,
		pageCount: PageCount,
	}
}

func (s *Store) ReadPDFText(ctx context.Context, bucket, key string) (string, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("s3 read s3://%s/%s: %w", bucket, key, err)
	}

	if n, err := s.pageCount(data); err != nil {
		s.log.Warn("pdf validation failed", zap.String("key", key), zap.Error(err))
	} else {
		s.log.Debug("pdf loaded", zap.String("key", key), zap.Int("pages", n), zap.Int("bytes", len(data)))
	}

	text, err := s.extract(data)
	if err != nil {
		return "", fmt.Errorf("extract s3://%s/%s: %w", bucket, key, err)
	}
	return text, nil
}

// CollectText concatenates the text of every referenced PDF in input order.
// References that are not PDFs are skipped.
func (s *Store) CollectText(ctx context.Context, uris []string) (string, error) {
	type ref struct{ bucket, key string }
	refs := make([]ref, len(uris))
	for i, uri := range uris {
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			return "", err
		}
		refs[i] = ref{bucket, key}
	}

	parts := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, r := range refs {
		if !IsPDF(r.key) {
			s.log.Info("skipping non-pdf reference", zap.String("uri", uris[i]))
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			text, err := s.ReadPDFText(gctx, r.bucket, r.key)
			if err != nil {
				return err
			}
			parts[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

func (s *Store) SaveJSON(ctx context.Context, bucket, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if _, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("s3 put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
