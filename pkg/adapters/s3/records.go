// Package s3 implements the content record service on an S3-compatible
// bucket (AWS S3 or MinIO).
//
// Layout: every record is one JSON object under
// "<prefix>records/<escaped address>/<id>.json", and "<prefix>index/<id>"
// holds the record's address so Update and Delete can find it by id.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/peermall/peerstore/pkg/core"
)

// Client is the subset of *s3.Client the record service uses.
type Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credentials chain.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // optional; custom endpoint such as MinIO
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// RecordService implements core.RecordService on a bucket.
type RecordService struct {
	client Client
	bucket string
	prefix string
	now    func() time.Time
}

// New builds an S3 client from cfg and returns a record service over it.
func New(ctx context.Context, cfg Config) (*RecordService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient returns a record service over an existing client.
func NewWithClient(client Client, bucket, prefix string) *RecordService {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &RecordService{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *RecordService) scope(address string) string {
	return s.prefix + "records/" + url.PathEscape(address) + "/"
}

func (s *RecordService) recordKey(address, id string) string {
	return s.scope(address) + id + ".json"
}

func (s *RecordService) indexKey(id string) string {
	return s.prefix + "index/" + id
}

func (s *RecordService) List(ctx context.Context, address string) ([]core.Record, error) {
	prefix := s.scope(address)
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}

	out := make([]core.Record, 0, len(keys))
	for _, key := range keys {
		var rec core.Record
		found, err := s.getJSON(ctx, key, &rec)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *RecordService) Create(ctx context.Context, address string, rec core.Record) (string, error) {
	stored := rec.Clone()
	stored.ID = uuid.NewString()
	stored.Address = address
	stored.CreatedAt = core.Timestamp(s.now())
	stored.UpdatedAt = stored.CreatedAt

	if err := s.putJSON(ctx, s.recordKey(address, stored.ID), stored); err != nil {
		return "", err
	}
	if err := s.put(ctx, s.indexKey(stored.ID), []byte(address), "text/plain"); err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (s *RecordService) Update(ctx context.Context, id string, patch core.Patch) error {
	address, err := s.lookup(ctx, "update", id)
	if err != nil {
		return err
	}
	key := s.recordKey(address, id)

	var rec core.Record
	found, err := s.getJSON(ctx, key, &rec)
	if err != nil {
		return err
	}
	if !found {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrNotFound}
	}
	rec = patch.Apply(rec)
	rec.UpdatedAt = core.Timestamp(s.now())
	return s.putJSON(ctx, key, rec)
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	address, err := s.lookup(ctx, "delete", id)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: aws.String(s.recordKey(address, id))}); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: aws.String(s.indexKey(id))}); err != nil {
		return fmt.Errorf("delete index %s: %w", id, err)
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *RecordService) ComponentType() string {
	return "s3-records"
}

func (s *RecordService) lookup(ctx context.Context, op, id string) (string, error) {
	data, found, err := s.get(ctx, s.indexKey(id))
	if err != nil {
		return "", err
	}
	if !found {
		return "", &core.OpError{Op: op, Key: id, Kind: core.ErrNotFound}
	}
	return string(data), nil
}

func (s *RecordService) get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *RecordService) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, found, err := s.get(ctx, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, &core.OpError{Op: "get", Key: key, Kind: core.ErrCorrupt, Err: err}
	}
	return true, nil
}

func (s *RecordService) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *RecordService) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &core.OpError{Op: "put", Key: key, Kind: core.ErrInvalid, Err: err}
	}
	return s.put(ctx, key, data, "application/json")
}

var _ core.RecordService = (*RecordService)(nil)
