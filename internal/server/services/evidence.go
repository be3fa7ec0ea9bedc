package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fieldvault/internal/server/config"
	"fieldvault/internal/server/models"
	"fieldvault/internal/server/repositories/evidence"
	"fieldvault/internal/server/repositories/records"
)

// test seams for the AWS SDK surface
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// EvidenceService registers uploaded evidence and applies synced mutations.
type EvidenceService struct {
	evidence evidence.Repository
	records  records.Repository
	config   *config.Config
}

// NewEvidenceService wires the evidence service.
func NewEvidenceService(ev evidence.Repository, rec records.Repository, cfg *config.Config) *EvidenceService {
	return &EvidenceService{
		evidence: ev,
		records:  rec,
		config:   cfg,
	}
}

// GetRandomStorageKey builds a date-partitioned object key for a new upload.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("evidence/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *EvidenceService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// NewUploadSlot allocates a fresh storage key and presigns a PUT for it. The
// agent writes the photo bytes there and then registers the metadata.
func (s *EvidenceService) NewUploadSlot(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.PresignValidityDuration))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// Register stores the evidence metadata for operatorID. It reports whether a
// new row was written; a retried registration of the same evidence ID is a
// successful no-op.
func (s *EvidenceService) Register(ctx context.Context, operatorID string, e *models.Evidence) (bool, error) {
	e.OperatorID = operatorID
	return s.evidence.Register(ctx, e)
}

// ListByTask returns the registered evidence for one task, capture order.
func (s *EvidenceService) ListByTask(ctx context.Context, taskID string) ([]*models.Evidence, error) {
	return s.evidence.ListByTask(ctx, taskID)
}

// VerifyHash reports whether the stored integrity hash for the evidence
// matches the given one. The stored hash is never updated; a mismatch means
// the agent-side bytes changed after capture.
func (s *EvidenceService) VerifyHash(ctx context.Context, id, photoHash string) (bool, error) {
	e, err := s.evidence.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return e.PhotoHash == photoHash, nil
}

// ApplyMutation applies one queued create/update/delete to the records
// collection. Create and update are both upserts: agents replay mutations
// after partial failures, so the verb only matters for delete.
func (s *EvidenceService) ApplyMutation(ctx context.Context, operatorID string, rec *models.Record) error {
	rec.OperatorID = operatorID

	switch rec.Action {
	case "create", "update":
		return s.records.Upsert(ctx, rec)
	case "delete":
		return s.records.Delete(ctx, rec.Type, rec.ID)
	default:
		return fmt.Errorf("unknown mutation action %q", rec.Action)
	}
}
