package debugdump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoCredentials is returned when the environment holds no AWS keys.
var ErrNoCredentials = errors.New("debugdump: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are not set")

// PutObjectAPI is the part of the S3 client used by S3Sink. *s3.Client
// implements it.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink stores dumps in an S3 bucket.
//
// Example usage:
//
//	client, err := debugdump.NewS3Client("eu-west-1")
//	sink := debugdump.NewS3Sink(client, "ui-dumps", "lobby/")
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing to bucket under prefix
// (e.g. "dumps/lobby/").
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Write uploads data and returns its s3:// location.
func (s *S3Sink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	key := s.prefix + name

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ContentType),
		Metadata: map[string]string{
			"dump-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// NewS3Client builds an S3 client from the standard AWS environment
// variables. AWS_ENDPOINT_URL points it at an S3-compatible store, using
// path-style addressing.
func NewS3Client(region string) (*s3.Client, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" || os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		return nil, ErrNoCredentials
	}

	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, ErrNoCredentials
	}
	return creds, nil
}
