package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "fieldvault/internal/server/config"
)

func newSvcForPresign(t *testing.T) *EvidenceService {
	t.Helper()
	cfg := &sc.Config{
		S3Region:                "us-east-1",
		S3RootUser:              "minioadmin",
		S3RootPassword:          "minioadmin",
		S3BaseEndpoint:          "http://127.0.0.1:9000",
		S3Bucket:                "evidence",
		SecretKey:               "k",
		PresignValidityDuration: 15 * time.Minute,
	}
	return NewEvidenceService(nil, nil, cfg)
}

func stubPresignSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPresign := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPresign
	})
}

func Test_getPresignClient_AppliesConfig(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		if len(optFns) == 0 {
			t.Fatalf("expected config options")
		}
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatalf("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient()
	if err != nil {
		t.Fatalf("getPresignClient err: %v", err)
	}
	if pc == nil {
		t.Fatalf("nil presign client")
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("base endpoint not applied: %q", capturedBaseEndpoint)
	}
}

func Test_getPresignClient_LoadError(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}

	if _, err := svc.getPresignClient(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewUploadSlot(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var capturedBucket, capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedBucket = *in.Bucket
		capturedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed/" + *in.Key}, nil
	}

	key, url, err := svc.NewUploadSlot(context.Background())
	if err != nil {
		t.Fatalf("NewUploadSlot err: %v", err)
	}
	if capturedBucket != "evidence" {
		t.Fatalf("bucket mismatch: %q", capturedBucket)
	}
	if key != capturedKey || !strings.HasPrefix(key, "evidence/") {
		t.Fatalf("unexpected key: %q", key)
	}
	if url != "http://signed/"+key {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestNewUploadSlot_PresignError(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign failed")
	}

	if _, _, err := svc.NewUploadSlot(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetRandomStorageKey_Unique(t *testing.T) {
	k1 := GetRandomStorageKey()
	k2 := GetRandomStorageKey()
	if k1 == k2 {
		t.Fatalf("keys must differ: %q", k1)
	}
	if !strings.HasPrefix(k1, "evidence/") {
		t.Fatalf("unexpected prefix: %q", k1)
	}
}
