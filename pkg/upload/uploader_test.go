package upload

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/places-export/internal/testutil"
	"github.com/Sternrassler/places-export/pkg/places"
)

func rating(r float64) *float64 { return &r }

func sampleRecords() []places.PlaceRecord {
	return []places.PlaceRecord{
		{Name: "A", Address: "1 Main St", Rating: rating(4.5), OperationalStatus: "OPERATIONAL"},
		{Name: "B", Address: "2 Main St", OperationalStatus: "CLOSED_TEMPORARILY"},
		{Name: "C", Address: "3 Main St", Rating: rating(3), OperationalStatus: "OPERATIONAL"},
	}
}

func TestNewUploader_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewUploader should panic with nil store")
		}
	}()
	NewUploader(nil)
}

func TestUpload_CreatesBucketAndWritesArray(t *testing.T) {
	store := testutil.NewMemoryStore()
	uploader := NewUploader(store)

	if err := uploader.Upload(context.Background(), sampleRecords(), "places", "results.json"); err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	if store.MakeCalls != 1 {
		t.Errorf("MakeBucket calls = %d, want 1", store.MakeCalls)
	}
	if store.PutCalls != 1 {
		t.Errorf("PutObject calls = %d, want 1", store.PutCalls)
	}

	obj, ok := store.Object("places", "results.json")
	if !ok {
		t.Fatal("object not stored")
	}
	if obj.ContentType != ContentType {
		t.Errorf("ContentType = %q, want %q", obj.ContentType, ContentType)
	}
	if obj.Size != int64(len(obj.Data)) {
		t.Errorf("Size = %d, data length %d", obj.Size, len(obj.Data))
	}

	var decoded []map[string]any
	if err := json.Unmarshal(obj.Data, &decoded); err != nil {
		t.Fatalf("payload is not a JSON array: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded = %d elements, want 3", len(decoded))
	}
	if decoded[1]["rating"] != nil {
		t.Errorf("missing rating should encode as null, got %v", decoded[1]["rating"])
	}
}

func TestUpload_FieldOrder(t *testing.T) {
	data, err := Marshal(sampleRecords()[:1])
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	expected := `[{"name":"A","address":"1 Main St","rating":4.5,"operational_status":"OPERATIONAL"}]`
	if string(data) != expected {
		t.Errorf("Marshal() = %s, want %s", data, expected)
	}
}

func TestUpload_EmptyRecords(t *testing.T) {
	for _, records := range [][]places.PlaceRecord{nil, {}} {
		store := testutil.NewMemoryStore()
		uploader := NewUploader(store)

		if err := uploader.Upload(context.Background(), records, "places", "empty.json"); err != nil {
			t.Fatalf("Upload() failed: %v", err)
		}

		obj, _ := store.Object("places", "empty.json")
		if string(obj.Data) != "[]" {
			t.Errorf("payload = %q, want []", obj.Data)
		}
	}
}

func TestUpload_ExistingBucketIdempotent(t *testing.T) {
	store := testutil.NewMemoryStore()
	uploader := NewUploader(store)
	ctx := context.Background()

	if err := uploader.Upload(ctx, sampleRecords(), "places", "results.json"); err != nil {
		t.Fatalf("first Upload() failed: %v", err)
	}
	if err := uploader.Upload(ctx, sampleRecords()[:1], "places", "results.json"); err != nil {
		t.Fatalf("second Upload() failed: %v", err)
	}

	if store.MakeCalls != 1 {
		t.Errorf("MakeBucket calls = %d, want 1", store.MakeCalls)
	}
	if store.Keys("places") != 1 {
		t.Errorf("objects = %d, want 1 (overwrite)", store.Keys("places"))
	}

	obj, _ := store.Object("places", "results.json")
	if !strings.HasPrefix(string(obj.Data), `[{"name":"A"`) || strings.Contains(string(obj.Data), `"B"`) {
		t.Errorf("second upload should overwrite, got %s", obj.Data)
	}
}

func TestUpload_BucketCreatedConcurrently(t *testing.T) {
	store := &racingStore{MemoryStore: testutil.NewMemoryStore()}
	uploader := NewUploader(store)

	if err := uploader.Upload(context.Background(), sampleRecords(), "places", "results.json"); err != nil {
		t.Fatalf("Upload() should tolerate a concurrently created bucket: %v", err)
	}
}

// racingStore reports the bucket missing once, then creates it and fails the
// MakeBucket call the way S3 does when another writer won.
type racingStore struct {
	*testutil.MemoryStore
	checked bool
}

func (s *racingStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if !s.checked {
		s.checked = true
		return false, nil
	}
	return s.MemoryStore.BucketExists(ctx, bucket)
}

func (s *racingStore) MakeBucket(_ context.Context, bucket string) error {
	s.CreateBucket(bucket)
	return errors.New("BucketAlreadyOwnedByYou")
}

func TestUpload_Errors(t *testing.T) {
	storageErr := errors.New("access denied")

	tests := []struct {
		name       string
		setup      func(*testutil.MemoryStore)
		bucket     string
		key        string
		expectedOp Op
	}{
		{
			name:       "missing bucket name",
			setup:      func(*testutil.MemoryStore) {},
			bucket:     "",
			key:        "k.json",
			expectedOp: OpValidate,
		},
		{
			name:       "bucket exists check fails",
			setup:      func(s *testutil.MemoryStore) { s.ExistsErr = storageErr },
			bucket:     "places",
			key:        "k.json",
			expectedOp: OpEnsureBucket,
		},
		{
			name:       "bucket create fails",
			setup:      func(s *testutil.MemoryStore) { s.MakeErr = storageErr },
			bucket:     "places",
			key:        "k.json",
			expectedOp: OpEnsureBucket,
		},
		{
			name:       "put fails",
			setup:      func(s *testutil.MemoryStore) { s.PutErr = storageErr },
			bucket:     "places",
			key:        "k.json",
			expectedOp: OpPutObject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMemoryStore()
			tt.setup(store)
			uploader := NewUploader(store)

			err := uploader.Upload(context.Background(), sampleRecords(), tt.bucket, tt.key)

			var uploadErr *UploadError
			if !errors.As(err, &uploadErr) {
				t.Fatalf("Expected *UploadError, got %T: %v", err, err)
			}
			if uploadErr.Op != tt.expectedOp {
				t.Errorf("Op = %q, want %q", uploadErr.Op, tt.expectedOp)
			}
			if tt.expectedOp != OpValidate && !errors.Is(err, storageErr) {
				t.Errorf("UploadError should carry the storage error, got %v", err)
			}
			if tt.expectedOp != OpValidate && !strings.Contains(err.Error(), "access denied") {
				t.Errorf("Error() = %q, should include underlying message", err.Error())
			}
		})
	}
}

func TestUpload_NoRetry(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.PutErr = errors.New("timeout")
	uploader := NewUploader(store)

	_ = uploader.Upload(context.Background(), sampleRecords(), "places", "results.json")
	if store.PutCalls != 1 {
		t.Errorf("PutObject calls = %d, want 1", store.PutCalls)
	}
}

func TestVersionedKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.FixedZone("IST", 5*3600+1800))

	tests := []struct {
		key      string
		expected string
	}{
		{"places.json", "places-20240102T093405Z.json"},
		{"out/places.json", "out/places-20240102T093405Z.json"},
		{"places", "places-20240102T093405Z"},
		{"out/.json", "out/20240102T093405Z.json"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := VersionedKey(tt.key, ts); got != tt.expected {
				t.Errorf("VersionedKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestUploadError_Error(t *testing.T) {
	err := &UploadError{Op: OpPutObject, Bucket: "b", Key: "k", Err: errors.New("boom")}
	if got := err.Error(); got != "upload b/k: put_object: boom" {
		t.Errorf("Error() = %q", got)
	}
}
