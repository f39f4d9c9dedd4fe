// Package blob stores the raw payload of every metrics submission, one
// object per submission, next to the aggregates kept in Redis.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ContentTypeJSON is the content type of every stored submission.
const ContentTypeJSON = "application/json"

// Metadata keys attached to each object.
const (
	MetaOwner       = "owner"
	MetaDescription = "description"
)

var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("blob: object not found")
	// ErrInvalidInput indicates that the provided key or payload is invalid
	ErrInvalidInput = errors.New("blob: invalid input")
)

// Error carries the operation and object an error happened on.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("blob.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("blob.%s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// Object is one stored submission.
type Object struct {
	Key          string
	Owner        string
	Description  string
	ContentType  string
	Body         []byte
	Size         int64
	LastModified time.Time
}

// ObjectInfo describes a listed object.
type ObjectInfo struct {
	KeyInfo
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified,omitzero"`
}

// Store is implemented by every backend.
type Store interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	List(ctx context.Context, trsID, version string) ([]ObjectInfo, error)
	Backend() string
}

// validatePut rejects objects that must never be written.
func validatePut(obj Object) error {
	if strings.TrimSpace(obj.Key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidInput)
	}
	if strings.TrimSpace(string(obj.Body)) == "" {
		return fmt.Errorf("%w: execution metrics data must be provided", ErrInvalidInput)
	}
	return nil
}

func metadataOf(obj Object) map[string]string {
	return map[string]string{
		MetaOwner:       obj.Owner,
		MetaDescription: obj.Description,
	}
}

// metaValue looks a metadata key up ignoring case; backends canonicalise
// header names differently.
func metaValue(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// infoFor decodes a listed key. Keys outside the scheme are skipped.
func infoFor(key string, size int64, modified time.Time) (ObjectInfo, bool) {
	ki, err := ParseKey(key)
	if err != nil {
		return ObjectInfo{}, false
	}
	return ObjectInfo{KeyInfo: ki, Key: key, Size: size, LastModified: modified}, true
}

func sortInfos(infos []ObjectInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
}
