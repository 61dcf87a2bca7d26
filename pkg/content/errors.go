package content

import (
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/octohelm/courier/pkg/statuserror"
)

type ErrObjectUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrObjectUnknown) ErrCode() string {
	return "OBJECT_UNKNOWN"
}

func (err *ErrObjectUnknown) Error() string {
	return fmt.Sprintf("unknown object digest=%s", err.Digest)
}

type ErrDigestMismatch struct {
	statuserror.BadRequest

	Actual   digest.Digest
	Expected digest.Digest
}

func (ErrDigestMismatch) ErrCode() string {
	return "DIGEST_INVALID"
}

func (err *ErrDigestMismatch) Error() string {
	return fmt.Sprintf("digest mismatch: got %s, expected %s", err.Actual, err.Expected)
}

type ErrSizeMismatch struct {
	statuserror.BadRequest

	Actual   int64
	Expected int64
}

func (ErrSizeMismatch) ErrCode() string {
	return "SIZE_INVALID"
}

func (err *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("size mismatch: got %d bytes, expected %d", err.Actual, err.Expected)
}

type ErrTagUnknown struct {
	statuserror.NotFound

	Tag string
}

func (ErrTagUnknown) ErrCode() string {
	return "TAG_UNKNOWN"
}

func (err *ErrTagUnknown) Error() string {
	return fmt.Sprintf("unknown tag=%s", err.Tag)
}

type ErrArtifactUnknown struct {
	statuserror.NotFound

	ID digest.Digest
}

func (ErrArtifactUnknown) ErrCode() string {
	return "ARTIFACT_UNKNOWN"
}

func (err *ErrArtifactUnknown) Error() string {
	return fmt.Sprintf("unknown artifact id=%s", err.ID)
}

// ErrSeal reports a failed integrity seal application or check. Fatal
// when the repository requires sealing, logged otherwise.
type ErrSeal struct {
	statuserror.InternalServerError

	Digest digest.Digest
	Reason error
}

func (ErrSeal) ErrCode() string {
	return "SEAL_FAILED"
}

func (err *ErrSeal) Error() string {
	return fmt.Sprintf("integrity seal failed for %s: %v", err.Digest, err.Reason)
}

func (err *ErrSeal) Unwrap() error {
	return err.Reason
}

type ErrLayerFormat struct {
	statuserror.BadRequest

	Digest digest.Digest
	Reason error
}

func (ErrLayerFormat) ErrCode() string {
	return "LAYER_INVALID"
}

func (err *ErrLayerFormat) Error() string {
	return fmt.Sprintf("malformed layer %s: %v", err.Digest, err.Reason)
}

func (err *ErrLayerFormat) Unwrap() error {
	return err.Reason
}

type ErrRepositoryFormat struct {
	statuserror.BadRequest

	Reason string
}

func (ErrRepositoryFormat) ErrCode() string {
	return "REPO_INVALID"
}

func (err *ErrRepositoryFormat) Error() string {
	return fmt.Sprintf("invalid repository layout: %s", err.Reason)
}

type ErrUploadUnknown struct {
	statuserror.NotFound
}

func (ErrUploadUnknown) ErrCode() string {
	return "UPLOAD_UNKNOWN"
}

func (err *ErrUploadUnknown) Error() string {
	return "upload unknown"
}
