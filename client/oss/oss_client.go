package oss

import (
	"io"
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// BlobStore keeps uploaded files in an aliyun OSS bucket. It satisfies
// attachment.BlobStore and is picked over the local store when
// OSS_ENDPOINT is configured.
type BlobStore struct {
	Bucket *oss.Bucket
}

func NewBlobStoreFromEnv() (*BlobStore, error) {
	bucket, err := BuildBucketFromEnv()
	if err != nil {
		return nil, err
	}
	return &BlobStore{Bucket: bucket}, nil
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "fixflow"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accessKey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accessKey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}
	return cli.Bucket(bucketName)
}

func (s *BlobStore) Save(key string, r io.Reader) error {
	return s.Bucket.PutObject(key, r)
}

func (s *BlobStore) Open(key string) (io.ReadCloser, error) {
	return s.Bucket.GetObject(key)
}

func (s *BlobStore) Remove(key string) error {
	return s.Bucket.DeleteObject(key)
}

func (s *BlobStore) RemovePrefix(prefix string) error {
	marker := oss.Marker("")
	for {
		lor, err := s.Bucket.ListObjects(oss.Prefix(prefix), marker)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(lor.Objects))
		for _, object := range lor.Objects {
			keys = append(keys, object.Key)
		}
		if len(keys) > 0 {
			if _, err := s.Bucket.DeleteObjects(keys); err != nil {
				return err
			}
		}
		if !lor.IsTruncated {
			return nil
		}
		marker = oss.Marker(lor.NextMarker)
	}
}
