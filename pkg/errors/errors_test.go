package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		surface   Surface
		publicMsg string
		retryable bool
	}{
		{code: CodeNetwork, surface: SurfaceNotice, publicMsg: "could not reach the server", retryable: true},
		{code: CodeValidation, surface: SurfaceInline, publicMsg: "validation failed"},
		{code: CodeAuth, surface: SurfaceNotice, publicMsg: "session expired, please sign in again"},
		{code: CodeNotAuthenticated, surface: SurfaceRedirect, publicMsg: "sign in to continue"},
		{code: CodeAssetTooLarge, surface: SurfaceInline, publicMsg: "file is too large"},
		{code: CodeAssetUnsupported, surface: SurfaceInline, publicMsg: "file type is not supported"},
		{code: CodeNotFound, surface: SurfaceNotice, publicMsg: "resource not found"},
		{code: CodeDependency, surface: SurfaceNotice, publicMsg: "service unavailable, try again shortly", retryable: true},
		{code: CodeInternal, surface: SurfaceNotice, publicMsg: "something went wrong", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.Surface != tt.surface {
			t.Fatalf("code %s expected surface %s got %s", tt.code, tt.surface, meta.Surface)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != metadataByCode[CodeInternal].PublicMessage {
		t.Fatalf("expected internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing field")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing field" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]string{"email": "required"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeNetwork, cause, "fetching products")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeNetwork {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeInternal, nil, "something")
	if err.Unwrap() != nil {
		t.Fatalf("expected no cause, got %v", err.Unwrap())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeAuth, "token rejected")
	if got := As(err); got == nil || got.Code() != CodeAuth {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("As should ignore untyped errors")
	}
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(CodeNotFound, "no such product")
	outer := fmt.Errorf("loading detail page: %w", inner)
	if !Is(outer, CodeNotFound) {
		t.Fatalf("expected code to survive wrapping, got %v", outer)
	}
}

func TestIsRejectsMismatchedCode(t *testing.T) {
	err := New(CodeNetwork, "timeout")
	if Is(err, CodeValidation) {
		t.Fatalf("Is matched the wrong code")
	}
	if Is(nil, CodeNetwork) {
		t.Fatalf("Is(nil) should be false")
	}
}
