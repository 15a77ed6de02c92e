/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package publish encodes deployment plans and writes them to a destination:
// a local file, standard output, or an object in an S3-compatible store.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/yaml"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
)

// Stdout is the destination naming standard output.
const Stdout = "-"

// PutTimeout bounds a single object upload.
const PutTimeout = 100 * time.Second

// Format is a plan encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
}

// ContentType is the media type of documents in format f.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Encode renders plan in format f. YAML output follows the JSON field names.
func Encode(plan *v1alpha1.DeploymentPlan, f Format) ([]byte, error) {
	if plan == nil {
		return nil, errors.New("nil plan")
	}
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(plan)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}

// Sink receives an encoded plan.
type Sink interface {
	Publish(ctx context.Context, data []byte, contentType string) error
	// String names the destination for logs.
	String() string
}

// FileSink writes to a local file, or to W when Path is "-".
type FileSink struct {
	Path string
	W    io.Writer
}

// Publish writes data, replacing the file atomically.
func (s *FileSink) Publish(_ context.Context, data []byte, _ string) error {
	if s.Path == Stdout || s.Path == "" {
		w := s.W
		if w == nil {
			w = os.Stdout
		}
		_, err := w.Write(data)
		return err
	}
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.Path, err)
	}
	return nil
}

func (s *FileSink) String() string {
	if s.Path == Stdout || s.Path == "" {
		return "stdout"
	}
	return s.Path
}

// ObjectPutter is the subset of *minio.Client used by ObjectSink.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectSink uploads to Bucket/Key through an S3-compatible client.
type ObjectSink struct {
	Client ObjectPutter
	Bucket string
	Key    string
}

// NewObjectSink connects to the store described by cfg.
func NewObjectSink(cfg config.ObjectStoreConfig, bucket, key string) (*ObjectSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store client failed, endpoint = %s: %w", cfg.Endpoint, err)
	}
	return &ObjectSink{Client: client, Bucket: bucket, Key: key}, nil
}

// Publish uploads data as a single object.
func (s *ObjectSink) Publish(ctx context.Context, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, PutTimeout)
	defer cancel()

	info, err := s.Client.PutObject(ctx, s.Bucket, s.Key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload plan to %s failed: %w", s, err)
	}
	ctrl.LoggerFrom(ctx).V(logging.DEBUG).Info("Uploaded plan",
		"bucket", info.Bucket,
		"key", info.Key,
		"size", info.Size,
		"etag", info.ETag)
	return nil
}

func (s *ObjectSink) String() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// ParseObjectURL splits an s3://bucket/key destination.
func ParseObjectURL(dest string) (bucket, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", fmt.Errorf("invalid destination %q: %w", dest, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid object destination %q", dest)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("object destination %q has no key", dest)
	}
	return u.Host, key, nil
}

// NewSink returns the sink for dest: "-" for stdout, s3://bucket/key for an
// object, anything else for a local file.
func NewSink(dest string, store config.ObjectStoreConfig, stdout io.Writer) (Sink, error) {
	if strings.HasPrefix(dest, "s3://") {
		bucket, key, err := ParseObjectURL(dest)
		if err != nil {
			return nil, err
		}
		if store.Endpoint == "" {
			return nil, fmt.Errorf("destination %q requires an object store endpoint", dest)
		}
		return NewObjectSink(store, bucket, key)
	}
	return &FileSink{Path: dest, W: stdout}, nil
}

// Publish encodes plan in format f and hands it to sink.
func Publish(ctx context.Context, sink Sink, plan *v1alpha1.DeploymentPlan, f Format) error {
	data, err := Encode(plan, f)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := sink.Publish(ctx, data, f.ContentType()); err != nil {
		return err
	}
	ctrl.LoggerFrom(ctx).Info("Published deployment plan",
		"destination", sink.String(),
		"format", string(f),
		"bytes", len(data))
	return nil
}
