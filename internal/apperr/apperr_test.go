package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("driver exploded")

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("title is required"), KindValidation},
		{"authRequired", AuthRequired("missing token"), KindAuthRequired},
		{"authInvalid", AuthInvalid(cause, "invalid token"), KindAuthInvalid},
		{"forbidden", Forbidden("not yours"), KindForbidden},
		{"notFound", NotFound("video not found"), KindNotFound},
		{"conflict", Conflict("duplicate"), KindConflict},
		{"upload", UploadFailed(cause, "upload failed"), KindUploadFailed},
		{"internal", Internal(cause, "boom"), KindInternal},
		{"wrappedSentinel", fmt.Errorf("select video: %w", ErrNotFound), KindNotFound},
		{"wrappedError", fmt.Errorf("outer: %w", Forbidden("inner")), KindForbidden},
		{"plain", errors.New("unknown"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("expected kind %s got %s", tc.want, got)
			}
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "load video")

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through errors.Is")
	}
	if !errors.Is(err, ErrInternal) {
		t.Fatal("expected kind sentinel to be reachable through errors.Is")
	}
}

func TestMessageOfHidesInternalDetails(t *testing.T) {
	if got := MessageOf(errors.New("pq: password authentication failed")); got != ErrInternal.Error() {
		t.Fatalf("expected generic message got %q", got)
	}
	if got := MessageOf(NotFound("video not found")); got != "video not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(fmt.Errorf("wrap: %w", ErrConflict)); got != ErrConflict.Error() {
		t.Fatalf("unexpected message %q", got)
	}
}
