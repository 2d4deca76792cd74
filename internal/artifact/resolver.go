// Package artifact turns template and policy locations into content the
// control plane can accept, uploading documents that are too large to inline.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nholik/stackpilot/internal/cfn"
)

const rawStringName = "RawString"

// BlobStore uploads and fetches artifacts in object storage.
type BlobStore interface {
	// Upload stores body and returns an https URL the control plane can read.
	Upload(ctx context.Context, stackName, body, originalName string, kind Kind) (string, error)
	Fetch(ctx context.Context, bucket, key string) (string, error)
}

// Resolver resolves locations for one kind of artifact.
type Resolver struct {
	kind        Kind
	maxSize     int
	forceUpload bool
	store       BlobStore
	client      cfn.Client
	stackName   string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithBlobStore sets the store used for S3 fetches and oversize uploads.
func WithBlobStore(store BlobStore) Option {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithForceUpload marks every inline artifact as oversize.
func WithForceUpload(force bool) Option {
	return func(r *Resolver) {
		r.forceUpload = force
	}
}

// WithPrevious enables previous-template resolution for the named stack.
func WithPrevious(client cfn.Client, stackName string) Option {
	return func(r *Resolver) {
		r.client = client
		r.stackName = stackName
	}
}

// NewTemplateResolver returns a resolver using the template size ceiling.
func NewTemplateResolver(opts ...Option) *Resolver {
	return newResolver(KindTemplate, TemplateMaxSize, opts)
}

// NewPolicyResolver returns a resolver using the stack policy size ceiling.
func NewPolicyResolver(opts ...Option) *Resolver {
	return newResolver(KindPolicy, PolicyMaxSize, opts)
}

func newResolver(kind Kind, maxSize int, opts []Option) *Resolver {
	r := &Resolver{kind: kind, maxSize: maxSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve classifies location and loads its content. Classification order:
// empty, contains a line break, existing file, absolute URI, inline text.
func (r *Resolver) Resolve(ctx context.Context, location string) (Resolved, error) {
	if location == "" {
		return Resolved{Source: None}, nil
	}
	if strings.ContainsAny(location, "\r\n") {
		return r.inline(String, location, rawStringName), nil
	}
	if info, err := os.Stat(location); err == nil && !info.IsDir() {
		data, err := os.ReadFile(location)
		if err != nil {
			return Resolved{}, fmt.Errorf("read %s: %w", r.kind, err)
		}
		return r.inline(File, string(data), baseName(location)), nil
	}
	if u, ok := parseAbsoluteURI(location); ok {
		loc, err := parseS3(location, u)
		if err != nil {
			return Resolved{}, err
		}
		return r.fetch(ctx, loc)
	}
	return r.inline(String, location, rawStringName), nil
}

func (r *Resolver) inline(source Source, content, name string) Resolved {
	if len(content) >= r.maxSize || r.forceUpload {
		source |= Oversize
	}
	return Resolved{Source: source, Content: content, BaseName: name}
}

func (r *Resolver) fetch(ctx context.Context, loc Location) (Resolved, error) {
	if r.store == nil {
		return Resolved{}, &MissingCollaboratorError{
			Kind:   r.kind,
			Need:   "blob store",
			Reason: "content stored in S3 cannot be read without one",
		}
	}
	content, err := r.store.Fetch(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return Resolved{}, fmt.Errorf("fetch %s from s3://%s/%s: %w", r.kind, loc.Bucket, loc.Key, err)
	}
	return Resolved{
		Source:   S3,
		Content:  content,
		URL:      loc.URL,
		BaseName: baseName(path.Base(loc.Key)),
	}, nil
}

// ResolvePrevious loads the template currently deployed for the stack along
// with the names of its NoEcho parameters.
func (r *Resolver) ResolvePrevious(ctx context.Context) (Resolved, error) {
	if r.client == nil || r.stackName == "" {
		return Resolved{}, &MissingCollaboratorError{
			Kind:   r.kind,
			Need:   "control plane client",
			Reason: "previous template requested without a stack",
		}
	}
	body, err := r.client.GetTemplate(ctx, r.stackName)
	if err != nil {
		return Resolved{}, err
	}
	summary, err := r.client.GetTemplateSummary(ctx, r.stackName)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Source:           UsePreviousTemplate,
		Content:          body,
		BaseName:         r.stackName,
		NoEchoParameters: summary.NoEchoKeys(),
	}, nil
}

// PromoteIfOversize uploads an oversize inline artifact and rewrites it to
// reference the uploaded copy. Other artifacts are returned unchanged.
func (r *Resolver) PromoteIfOversize(ctx context.Context, stackName string, res Resolved) (Resolved, error) {
	if !res.IsOversize() || res.Source.Has(S3) {
		return res, nil
	}
	if r.store == nil {
		return Resolved{}, &MissingCollaboratorError{
			Kind:   r.kind,
			Need:   "blob store",
			Reason: fmt.Sprintf("%d bytes exceeds the %d byte inline limit or upload was forced", len(res.Content), r.maxSize),
		}
	}
	name := res.BaseName
	if name == "" {
		name = rawStringName
	}
	uri, err := r.store.Upload(ctx, stackName, res.Content, name, r.kind)
	if err != nil {
		return Resolved{}, fmt.Errorf("upload %s: %w", r.kind, err)
	}
	if uri == "" {
		return Resolved{}, errors.New("blob store returned an empty URL")
	}
	res.Source = S3
	res.URL = uri
	return res, nil
}

func baseName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
