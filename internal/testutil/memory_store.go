package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// StoredObject is an object held by MemoryStore.
type StoredObject struct {
	Data        []byte
	Size        int64
	ContentType string
}

// MemoryStore is an in-memory object store with the bucket-exists,
// create-bucket and put-object operations of an S3-compatible backend.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]StoredObject

	// Injected failures, returned by the matching operation when non-nil.
	ExistsErr error
	MakeErr   error
	PutErr    error

	MakeCalls int
	PutCalls  int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]StoredObject)}
}

// BucketExists reports whether bucket exists.
func (s *MemoryStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	_, ok := s.buckets[bucket]
	return ok, nil
}

// MakeBucket creates bucket. Creating an existing bucket is an error, like S3.
func (s *MemoryStore) MakeBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MakeCalls++
	if s.MakeErr != nil {
		return s.MakeErr
	}
	if _, ok := s.buckets[bucket]; ok {
		return fmt.Errorf("bucket %q already exists", bucket)
	}
	s.buckets[bucket] = make(map[string]StoredObject)
	return nil
}

// PutObject stores size bytes read from r under bucket/key, replacing any previous object.
func (s *MemoryStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutCalls++
	if s.PutErr != nil {
		return s.PutErr
	}
	objects, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}
	objects[key] = StoredObject{Data: data, Size: size, ContentType: contentType}
	return nil
}

// CreateBucket adds bucket directly, bypassing call counting.
func (s *MemoryStore) CreateBucket(bucket string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]StoredObject)
	}
}

// Object returns the object stored under bucket/key.
func (s *MemoryStore) Object(bucket, key string) (StoredObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.buckets[bucket][key]
	return obj, ok
}

// Keys returns the number of objects in bucket.
func (s *MemoryStore) Keys(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[bucket])
}
