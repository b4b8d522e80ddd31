// internal/services/archive_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/imi-licensing/internal/config"
	"github.com/javajoker/imi-licensing/internal/licensing"
)

// SnapshotSource is the part of LicensingService the archive needs.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (licensing.Snapshot, uint64, error)
}

// ArchiveService exports full contract snapshots to S3.
type ArchiveService struct {
	source   SnapshotSource
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	now      func() time.Time
	logger   *logrus.Logger
}

type SnapshotDocument struct {
	ReceiptSequence uint64             `json:"receipt_sequence"`
	ExportedAt      time.Time          `json:"exported_at"`
	State           licensing.Snapshot `json:"state"`
}

type ArchiveResult struct {
	Key             string            `json:"key,omitempty"`
	Location        string            `json:"location,omitempty"`
	Size            int               `json:"size"`
	ReceiptSequence uint64            `json:"receipt_sequence"`
	Document        *SnapshotDocument `json:"document,omitempty"`
}

func NewArchiveService(source SnapshotSource, cfg config.AWSConfig, logger *logrus.Logger) (*ArchiveService, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ArchiveService{
		source: source,
		bucket: cfg.S3Bucket,
		prefix: strings.Trim(cfg.SnapshotPrefix, "/"),
		now:    time.Now,
		logger: logger,
	}

	if cfg.AccessKeyID == "" {
		// Snapshots are returned inline for local development
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	s.uploader = s3manager.NewUploader(sess)
	return s, nil
}

// NewArchiveServiceWithUploader is used by tests to supply a fake uploader.
func NewArchiveServiceWithUploader(source SnapshotSource, uploader s3manageriface.UploaderAPI, bucket, prefix string) *ArchiveService {
	return &ArchiveService{
		source:   source,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		now:      time.Now,
		logger:   logrus.StandardLogger(),
	}
}

func (s *ArchiveService) Export(ctx context.Context) (*ArchiveResult, error) {
	snap, sequence, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc := SnapshotDocument{
		ReceiptSequence: sequence,
		ExportedAt:      s.now().UTC(),
		State:           snap,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if s.uploader == nil {
		return &ArchiveResult{
			Size:            len(body),
			ReceiptSequence: sequence,
			Document:        &doc,
		}, nil
	}

	key := s.objectKey(sequence)
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]*string{
			"receipt-sequence": aws.String(fmt.Sprintf("%d", sequence)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"key":      key,
		"size":     len(body),
		"receipt":  sequence,
		"location": out.Location,
	}).Info("Snapshot archived")

	return &ArchiveResult{
		Key:             key,
		Location:        out.Location,
		Size:            len(body),
		ReceiptSequence: sequence,
	}, nil
}

func (s *ArchiveService) objectKey(sequence uint64) string {
	name := fmt.Sprintf("snapshot-%020d-%s.json", sequence, uuid.New().String())
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
