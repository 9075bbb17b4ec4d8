package upload

import "fmt"

// Op names the upload step that failed.
type Op string

const (
	OpValidate     Op = "validate"
	OpSerialize    Op = "serialize"
	OpEnsureBucket Op = "ensure_bucket"
	OpPutObject    Op = "put_object"
)

// UploadError carries the underlying storage failure of an upload.
type UploadError struct {
	Op     Op
	Bucket string
	Key    string
	Err    error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s/%s: %s: %v", e.Bucket, e.Key, e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UploadError) Unwrap() error {
	return e.Err
}
