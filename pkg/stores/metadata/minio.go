package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
)

/*
MinioStore is the durable networked metadata backend. Records are JSON
objects under "<table>/<key>" in a single bucket.
*/
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioConfig holds the connection settings for the primary store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

/*
NewMinioStore connects to the object store and makes sure the bucket
exists. Connection failures surface here, not on first use.
*/
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (store *MinioStore) Name() string {
	return "minio"
}

func (store *MinioStore) objectKey(table, key string) string {
	return table + "/" + key
}

func (store *MinioStore) Put(ctx context.Context, table, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", table, err)
	}

	_, err = store.client.PutObject(
		ctx, store.bucket, store.objectKey(table, key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func (store *MinioStore) Get(ctx context.Context, table, key string, out any) error {
	obj, err := store.client.GetObject(
		ctx, store.bucket, store.objectKey(table, key), minio.GetObjectOptions{},
	)
	if err != nil {
		return err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return errors.ErrNotFound.WithMessagef("%s/%s", table, key)
		}
		return err
	}

	return json.Unmarshal(data, out)
}

func (store *MinioStore) Delete(ctx context.Context, table, key string) error {
	// Verify existence first so delete reports NotFound like Get does.
	_, err := store.client.StatObject(
		ctx, store.bucket, store.objectKey(table, key), minio.StatObjectOptions{},
	)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return errors.ErrNotFound.WithMessagef("%s/%s", table, key)
		}
		return err
	}

	return store.client.RemoveObject(
		ctx, store.bucket, store.objectKey(table, key), minio.RemoveObjectOptions{},
	)
}

func (store *MinioStore) List(ctx context.Context, table string) (map[string]json.RawMessage, error) {
	records := make(map[string]json.RawMessage)
	prefix := table + "/"

	for obj := range store.client.ListObjects(ctx, store.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		reader, err := store.client.GetObject(ctx, store.bucket, obj.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, err
		}

		records[strings.TrimPrefix(obj.Key, prefix)] = json.RawMessage(data)
	}

	return records, nil
}

func (store *MinioStore) Health(ctx context.Context) error {
	exists, err := store.client.BucketExists(ctx, store.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s missing", store.bucket)
	}
	return nil
}
