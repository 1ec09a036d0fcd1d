package source

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
)

// S3API is the subset of *s3.Client used here.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 lists SVG objects under Prefix in Bucket. Subject IDs are
// s3://bucket/key URIs and Path is the object key.
type S3 struct {
	Client   S3API
	Bucket   string
	Prefix   string
	MaxBytes int64
}

// NewS3 builds a bucket source from the default AWS credential chain.
func NewS3(ctx context.Context, region, bucket, prefix string, maxBytes int64) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3{
		Client:   s3.NewFromConfig(cfg),
		Bucket:   bucket,
		Prefix:   prefix,
		MaxBytes: maxBytes,
	}, nil
}

func (s *S3) List(ctx context.Context) ([]scan.Subject, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.Bucket)}
	if s.Prefix != "" {
		in.Prefix = aws.String(s.Prefix)
	}

	var out []scan.Subject
	p := s3.NewListObjectsV2Paginator(s.Client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", s.Bucket, s.Prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isSVG(key) {
				continue
			}
			out = append(out, scan.Subject{ID: fmt.Sprintf("s3://%s/%s", s.Bucket, key), Path: key})
		}
	}
	return out, nil
}

func (s *S3) Read(ctx context.Context, subj scan.Subject) ([]byte, error) {
	obj, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(subj.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", subj.ID, err)
	}
	defer obj.Body.Close()

	if s.MaxBytes > 0 && aws.ToInt64(obj.ContentLength) > s.MaxBytes {
		return nil, fmt.Errorf("%s: %w: %d bytes", subj.ID, ErrTooLarge, aws.ToInt64(obj.ContentLength))
	}
	return readCapped(obj.Body, s.MaxBytes)
}
