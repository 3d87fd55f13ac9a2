package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/chemindex/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"record not found", errors.ErrCodeRecordNotFound, "record 3f2a not found"},
		{"sanitization", errors.ErrCodeSanitizationFailed, "nothing left to index"},
		{"invalid param", errors.CodeInvalidParam, "kind must not be empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "id=%d", 1))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("toolkit: clone failed")
	wrapped := errors.Wrap(root, errors.ErrCodeStructureBackendFailure, "clone")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeStructureBackendFailure, wrapped.Code)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeRecordNotFound, "not found")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	assert.Equal(t, errors.ErrCodeRecordNotFound, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeRecordNotFound, "not found")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")

	assert.Equal(t, errors.CodeInternal, outer.Code)
}

func TestWrapf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Wrapf(stderrors.New("eof"), errors.ErrCodeSearchFailed, "search %s", "chem-molecules")
	assert.Equal(t, "search chem-molecules", ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeReconstructionFailed, "unexpected empty canonical form")
	assert.Equal(t, "[REC_004] unexpected empty canonical form", ae.Error())

	detailed := ae.WithDetail("id=abc")
	assert.Equal(t, "[REC_004] unexpected empty canonical form: id=abc", detailed.Error())

	caused := errors.Wrap(stderrors.New("boom"), errors.ErrCodeStructureBackendFailure, "hash")
	assert.True(t, strings.HasSuffix(caused.Error(), ": boom"))
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeNotFound, "resource missing")
	detailed := original.WithDetail("id=42")

	assert.Empty(t, original.Detail)
	assert.Equal(t, "id=42", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_AttachesCause(t *testing.T) {
	t.Parallel()

	root := stderrors.New("dial tcp: connection refused")
	ae := errors.New(errors.ErrCodeCacheError, "cache error").WithCause(root)

	assert.Equal(t, root, ae.Cause)
	assert.True(t, stderrors.Is(ae, root))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode(t *testing.T) {
	t.Parallel()

	level0 := errors.New(errors.ErrCodeFingerprintParseFailed, "bad bit list")
	level1 := errors.Wrap(level0, errors.CodeInvalidParam, "validation failed")
	level2 := fmt.Errorf("handler: %w", errors.Wrap(level1, errors.CodeInternal, "handler error"))

	assert.True(t, errors.IsCode(level2, errors.ErrCodeFingerprintParseFailed))
	assert.True(t, errors.IsCode(level2, errors.CodeInvalidParam))
	assert.True(t, errors.IsCode(level2, errors.CodeInternal))
	assert.False(t, errors.IsCode(level2, errors.ErrCodeStorageFailed))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeRecordNotFound, "x")))
	assert.True(t, errors.IsNotFound(errors.Wrap(errors.NotFound("x"), errors.CodeInternal, "wrapped")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeIndexFailed, "bulk rejected")
	outer := errors.Wrap(inner, errors.CodeInternal, "ingest failed")

	assert.Equal(t, errors.CodeInternal, errors.GetCode(outer))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(fmt.Errorf("ctx: %w", inner)))
}

func TestConvenienceFactories(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      *errors.AppError
		wantCode errors.ErrorCode
	}{
		{"NotFound", errors.NotFound("not found"), errors.CodeNotFound},
		{"InvalidParam", errors.InvalidParam("bad input"), errors.CodeInvalidParam},
		{"Internal", errors.Internal("server error"), errors.CodeInternal},
		{"Conflict", errors.Conflict("index exists"), errors.CodeConflict},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.NotNil(t, tc.err)
			assert.Equal(t, tc.wantCode, tc.err.Code)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestStdlib_ErrorsAs_ExtractsAppError(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.ErrCodeUnknownToolkit, "toolkit \"indigo\" not registered")
	wrapped := fmt.Errorf("open: %w", original)

	var ae *errors.AppError
	require.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, errors.ErrCodeUnknownToolkit, ae.Code)
	assert.True(t, errors.Is(wrapped, original))
}

//Personal.AI order the ending
