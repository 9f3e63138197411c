package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

func (r *Resolver) resolveS3(ctx context.Context, loc Location, opts ResolveOptions) ([]Source, error) {
	if err := requireS3Auth(loc, opts); err != nil {
		return nil, err
	}
	client, err := r.s3Client(opts)
	if err != nil {
		return nil, err
	}
	if !HasGlob(loc.Key) {
		obj, err := client.StatObject(ctx, loc.Bucket, loc.Key, minio.StatObjectOptions{})
		if err != nil {
			return nil, mapS3Err(err, loc.Raw)
		}
		return []Source{s3Source(client, loc.Bucket, obj)}, nil
	}

	// Listing is bounded by the longest literal prefix of the pattern.
	prefix := globPrefix(loc.Key)
	var matched []minio.ObjectInfo
	for obj := range client.ListObjects(ctx, loc.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, mapS3Err(obj.Err, loc.Raw)
		}
		if globMatch(loc.Key, obj.Key) {
			matched = append(matched, obj)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no objects matched %q", ErrPathNotFound, loc.Raw)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	sources := make([]Source, 0, len(matched))
	for _, obj := range matched {
		sources = append(sources, s3Source(client, loc.Bucket, obj))
	}
	return sources, nil
}

func (r *Resolver) s3Client(opts ResolveOptions) (*minio.Client, error) {
	endpoint := r.cfg.S3Endpoint
	secure := r.cfg.S3UseSSL
	if endpoint == "" {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", opts.Region)
		secure = true
	}
	secret := opts.Credential.Secret
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(secret.AccessKeyID, secret.SecretAccessKey, secret.SessionToken),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("build s3 client: %w", err)
	}
	return client, nil
}

func s3Source(client *minio.Client, bucket string, obj minio.ObjectInfo) Source {
	name := fmt.Sprintf("s3://%s/%s", bucket, obj.Key)
	key := obj.Key
	return NewSource(name, obj.Size, obj.LastModified.UTC(), func(ctx context.Context) (io.ReadCloser, error) {
		object, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, mapS3Err(err, name)
		}
		if _, err := object.Stat(); err != nil {
			_ = object.Close()
			return nil, mapS3Err(err, name)
		}
		return object, nil
	})
}

func mapS3Err(err error, raw string) error {
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %q", ErrPathNotFound, raw)
		}
	}
	return fmt.Errorf("s3 access for %q: %w", raw, err)
}

// globPrefix returns the literal key prefix before the first wildcard.
func globPrefix(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[")
	if idx < 0 {
		return pattern
	}
	return pattern[:idx]
}

// globMatch matches object keys against a pattern where `*` and `?` stay
// within one path segment and `**` crosses segments.
func globMatch(pattern, name string) bool {
	switch {
	case pattern == "":
		return name == ""
	case strings.HasPrefix(pattern, "**"):
		rest := strings.TrimPrefix(pattern, "**")
		rest = strings.TrimPrefix(rest, "/")
		for i := 0; i <= len(name); i++ {
			if globMatch(rest, name[i:]) {
				return true
			}
		}
		return false
	case pattern[0] == '*':
		if globMatch(pattern[1:], name) {
			return true
		}
		for i := 0; i < len(name) && name[i] != '/'; i++ {
			if globMatch(pattern[1:], name[i+1:]) {
				return true
			}
		}
		return false
	case pattern[0] == '?':
		if name == "" || name[0] == '/' {
			return false
		}
		return globMatch(pattern[1:], name[1:])
	default:
		if name == "" || name[0] != pattern[0] {
			return false
		}
		return globMatch(pattern[1:], name[1:])
	}
}
