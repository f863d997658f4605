// Package fetch downloads the daily Platform exports from S3.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the part of the S3 client the fetcher uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options locate the exports.
type Options struct {
	Bucket       string
	Organization string
	Profile      string
	Region       string
}

// Fetcher copies one day's exports to a local directory.
type Fetcher struct {
	client API
	opts   Options
	log    *zap.Logger
}

// New builds a fetcher on the shared AWS configuration for the profile.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Fetcher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), opts, log), nil
}

// NewWithClient builds a fetcher on an existing client.
func NewWithClient(client API, opts Options, log *zap.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, log: log}
}

// Prefix is the key prefix the Platform writes a day's exports under.
func Prefix(org string, day time.Time) string {
	return org + "/" + day.Format("2006/01/02") + "/"
}

// NoExportsError is returned when nothing was delivered for the day.
type NoExportsError struct {
	Bucket string
	Prefix string
}

func (e *NoExportsError) Error() string {
	return fmt.Sprintf("no exports found in s3://%s/%s", e.Bucket, e.Prefix)
}

// Download copies every export delivered on day into dst and returns the
// local paths, sorted. Existing files are overwritten.
func (f *Fetcher) Download(ctx context.Context, day time.Time, dst string) ([]string, error) {
	prefix := Prefix(f.opts.Organization, day)

	var keys []string
	p := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.opts.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", f.opts.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); !strings.HasSuffix(key, "/") {
				keys = append(keys, key)
			}
		}
	}
	if len(keys) == 0 {
		return nil, &NoExportsError{Bucket: f.opts.Bucket, Prefix: prefix}
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	paths := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, key := range keys {
		i, key := i, key
		paths[i] = filepath.Join(dst, path.Base(key))
		g.Go(func() error {
			return f.download(gctx, key, paths[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	f.log.Info("exports downloaded", zap.String("prefix", prefix), zap.Int("files", len(paths)))
	return paths, nil
}

func (f *Fetcher) download(ctx context.Context, key, dst string) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", f.opts.Bucket, key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	f.log.Debug("export downloaded", zap.String("key", key), zap.String("path", dst))
	return nil
}
