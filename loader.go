package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Loader fetches the raw bytes of every required input and the source
// file of a compilation unit, producing the FileData slice Analyze
// needs. Local and remote backends implement it identically from the
// Driver's point of view.
type Loader interface {
	Load(ctx context.Context, unit *CompilationUnit) ([]FileData, error)
}

// LocalLoader reads required inputs and the source file straight off
// the local filesystem, by the full path each carries.
type LocalLoader struct{}

// Load reads every path referenced by unit from disk.
func (LocalLoader) Load(ctx context.Context, unit *CompilationUnit) ([]FileData, error) {
	paths := requiredPaths(unit)
	files := make([]FileData, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, FileData{Path: path, Content: content})
	}
	return files, nil
}

// S3Config configures an S3Loader. BaseEndpoint and UsePathStyle exist
// to support S3-compatible object stores (e.g. MinIO) used in local
// development and CI, the way the spoke registry's storage config does.
type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	UsePathStyle bool
	KeyPrefix    string
}

// S3Loader fetches required inputs from an S3 bucket, treating each
// unit's RequiredInput.Path as an object key under KeyPrefix.
type S3Loader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Loader builds an S3Loader from cfg, using static credentials
// when both AccessKey and SecretKey are given, or the default AWS
// credential chain otherwise.
func NewS3Loader(ctx context.Context, cfg S3Config) (*S3Loader, error) {
	var awsConfig aws.Config
	var err error
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Loader{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

// Load fetches every path referenced by unit as an object under the
// loader's bucket and key prefix.
func (l *S3Loader) Load(ctx context.Context, unit *CompilationUnit) ([]FileData, error) {
	paths := requiredPaths(unit)
	files := make([]FileData, 0, len(paths))
	for _, path := range paths {
		key := filepath.Join(l.prefix, path)
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("fetching s3://%s/%s: %w", l.bucket, key, err)
		}
		content, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading s3://%s/%s: %w", l.bucket, key, err)
		}
		files = append(files, FileData{Path: path, Content: content})
	}
	return files, nil
}

// requiredPaths returns the distinct paths a compilation unit
// references: the source file plus every required input.
func requiredPaths(unit *CompilationUnit) []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	add(unit.SourceFile)
	for _, input := range unit.RequiredInput {
		add(input.Path)
	}
	return paths
}
