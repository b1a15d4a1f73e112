// Package s3store хранит блобы в S3-совместимом бакете через minio-go.
//
// Данные лежат в объекте blobs/<id>, описание — в blobs/<id>.json. Описание пишется последним,
// и только по нему Stat/OpenRead считают блоб существующим.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// partSize — минимальный размер части multipart-загрузки S3; столько minio держит в памяти на поток.
const partSize = 5 << 20

type Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
}

type Store struct {
	cl     *minio.Client
	bucket string
}

// New создаёт клиента; бакет должен существовать.
func New(cfg Config) (*Store, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &Store{cl: cl, bucket: cfg.Bucket}, nil
}

var _ blobstore.Store = (*Store)(nil)

func (s *Store) OpenWrite(ctx context.Context, name string, opts blobstore.WriteOptions) (blobstore.Sink, error) {
	return newSink(ctx, s, models.NewBlobID(), name, opts), nil
}

func (s *Store) OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end, err := blobstore.Bounds(info, w)
	if err != nil {
		return nil, err
	}
	if info.Length == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	opts := minio.GetObjectOptions{}
	if w != nil {
		if err := opts.SetRange(start, end); err != nil {
			return nil, err
		}
	}

	obj, err := s.cl.GetObject(ctx, s.bucket, dataKey(id), opts)
	if err != nil {
		return nil, mapErr(err)
	}

	return obj, nil
}

func (s *Store) Stat(ctx context.Context, id models.BlobID) (models.BlobInfo, error) {
	obj, err := s.cl.GetObject(ctx, s.bucket, manifestKey(id), minio.GetObjectOptions{})
	if err != nil {
		return models.BlobInfo{}, mapErr(err)
	}
	defer obj.Close()

	var info models.BlobInfo
	if err := json.NewDecoder(obj).Decode(&info); err != nil {
		return models.BlobInfo{}, mapErr(err)
	}

	return info, nil
}

// Delete убирает сначала описание (блоб перестаёт быть виден), потом данные.
func (s *Store) Delete(ctx context.Context, id models.BlobID) error {
	if _, err := s.cl.StatObject(ctx, s.bucket, manifestKey(id), minio.StatObjectOptions{}); err != nil {
		return mapErr(err)
	}

	if err := s.cl.RemoveObject(ctx, s.bucket, manifestKey(id), minio.RemoveObjectOptions{}); err != nil {
		return mapErr(err)
	}

	return mapErr(s.cl.RemoveObject(ctx, s.bucket, dataKey(id), minio.RemoveObjectOptions{}))
}

// Ping проверяет наличие бакета.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}

	return nil
}

func (s *Store) putManifest(ctx context.Context, info models.BlobInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}

	_, err = s.cl.PutObject(ctx, s.bucket, manifestKey(info.ID), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})

	return err
}

func (s *Store) removeData(ctx context.Context, id models.BlobID) {
	_ = s.cl.RemoveObject(ctx, s.bucket, dataKey(id), minio.RemoveObjectOptions{})
}

func dataKey(id models.BlobID) string {
	return "blobs/" + id.String()
}

func manifestKey(id models.BlobID) string {
	return "blobs/" + id.String() + ".json"
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return models.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %v", models.ErrStoreIO, err)
}
