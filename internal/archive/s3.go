package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"

	"cms-go/internal/cms"
)

// S3Config controls where the S3 archive keeps its objects.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional; host[:port] or URL of an S3-compatible service
	PathStyle       bool
	AccessKeyID     string // optional static credentials
	SecretAccessKey string
}

// s3OpTimeout bounds every request made on behalf of one archive call.
const s3OpTimeout = 2 * time.Minute

// bucketMarker is the object that records a document's bucket exists, since S3
// has no empty directories.
const bucketMarker = ".bucket"

// S3Archive is an S3-backed implementation of the cms.Archive interface.
// Objects are laid out as:
//
//	<prefix>/<document name>/.bucket
//	<prefix>/<document name>/<base>_<timestamp><ext>
type S3Archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	clock    cms.Clock
}

// NewS3Archive creates an S3 archive. Credentials come from cfg when set, otherwise
// from the default AWS credential chain.
func NewS3Archive(cfg S3Config, clock cms.Clock) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 archive: region is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if clock == nil {
		clock = cms.RealClock{}
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 archive: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.Contains(endpoint, "://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		clock:    clock,
	}, nil
}

func (a *S3Archive) bucketPrefix(document string) string {
	return path.Join(a.cfg.Prefix, document) + "/"
}

func (a *S3Archive) key(document, name string) string {
	return a.bucketPrefix(document) + name
}

// CreateBucket writes the bucket marker object for document.
func (a *S3Archive) CreateBucket(document string) error {
	if err := checkSegment(document); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	if err := a.put(ctx, a.key(document, bucketMarker), nil); err != nil {
		return cms.StorageError(fmt.Errorf("creating bucket %s: %w", document, err))
	}
	return nil
}

// RecordVersion uploads previous as a new snapshot object.
func (a *S3Archive) RecordVersion(document string, previous []byte) (*cms.Snapshot, error) {
	if err := checkSegment(document); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	exists, err := a.exists(ctx, a.key(document, bucketMarker))
	if err != nil {
		return nil, cms.StorageError(fmt.Errorf("checking bucket %s: %w", document, err))
	}
	if !exists {
		return nil, cms.StorageError(fmt.Errorf("history bucket for %s does not exist", document))
	}

	now := a.clock.Now()
	for seq := 0; ; seq++ {
		id := cms.SnapshotID(document, now, seq)
		key := a.key(document, id)
		taken, err := a.exists(ctx, key)
		if err != nil {
			return nil, cms.StorageError(fmt.Errorf("checking snapshot %s: %w", id, err))
		}
		if taken {
			continue
		}
		if err := a.put(ctx, key, previous); err != nil {
			return nil, cms.StorageError(fmt.Errorf("storing snapshot %s: %w", id, err))
		}
		snap, _ := cms.NewSnapshot(document, id)
		return snap, nil
	}
}

// ListVersions lists the snapshot objects of document, oldest first.
func (a *S3Archive) ListVersions(document string) ([]*cms.Snapshot, error) {
	if err := checkSegment(document); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	names, err := a.listNames(ctx, document)
	if err != nil {
		return nil, cms.StorageError(fmt.Errorf("listing bucket %s: %w", document, err))
	}

	var snaps []*cms.Snapshot
	for _, name := range names {
		if snap, ok := cms.NewSnapshot(document, name); ok {
			snaps = append(snaps, snap)
		}
	}
	cms.SortSnapshots(snaps)
	return snaps, nil
}

// ReadVersion downloads one snapshot object.
func (a *S3Archive) ReadVersion(document string, snapshotID string) ([]byte, error) {
	if err := checkSegment(document); err != nil {
		return nil, err
	}
	if err := checkSegment(snapshotID); err != nil || snapshotID == bucketMarker {
		return nil, fmt.Errorf("%w: snapshot %s of %s", cms.ErrNotFound, snapshotID, document)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(a.key(document, snapshotID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: snapshot %s of %s", cms.ErrNotFound, snapshotID, document)
		}
		return nil, cms.StorageError(fmt.Errorf("reading snapshot %s: %w", snapshotID, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, cms.StorageError(fmt.Errorf("reading snapshot %s: %w", snapshotID, err))
	}
	return data, nil
}

// DeleteAll removes every object under the document's prefix, marker included.
func (a *S3Archive) DeleteAll(document string) error {
	if err := checkSegment(document); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	names, err := a.listNames(ctx, document)
	if err != nil {
		return cms.StorageError(fmt.Errorf("listing bucket %s: %w", document, err))
	}
	for _, name := range names {
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.cfg.Bucket),
			Key:    aws.String(a.key(document, name)),
		})
		if err != nil && !isNotFound(err) {
			return cms.StorageError(fmt.Errorf("deleting %s of %s: %w", name, document, err))
		}
	}
	return nil
}

// ValidateSetup verifies that the S3 bucket is reachable.
func (a *S3Archive) ValidateSetup() error {
	ctx, cancel := context.WithTimeout(context.Background(), s3OpTimeout)
	defer cancel()

	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.cfg.Bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", a.cfg.Bucket, err)
	}
	return nil
}

func (a *S3Archive) put(ctx context.Context, key string, data []byte) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (a *S3Archive) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// listNames returns the object names directly beneath the document's prefix.
func (a *S3Archive) listNames(ctx context.Context, document string) ([]string, error) {
	prefix := a.bucketPrefix(document)
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

// Compile-time check that S3Archive implements cms.Archive interface
var _ cms.Archive = (*S3Archive)(nil)
