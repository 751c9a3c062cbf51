package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	wrapped := fmt.Errorf("sign in: %w", ErrUserNotFound)

	if !errors.Is(wrapped, ErrUserNotFound) {
		t.Fatalf("expected identity match")
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(wrapped, ErrAlreadyExists) {
		t.Fatalf("unexpected kind match")
	}
	if errors.Is(wrapped, ErrNotAuthenticated) {
		t.Fatalf("named errors must not match each other")
	}
	if KindOf(wrapped) != NotFound {
		t.Fatalf("KindOf = %q", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors have no kind")
	}
}

func TestPersistenceErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := PersistenceError("save", cause)
	if !errors.Is(err, cause) || !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected cause and kind in chain: %v", err)
	}
	if err.Error() != "save: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	err := E(NotFound, "sign in", "", ErrUserNotFound)
	if got := UserMessage(err); got != "user not found" {
		t.Fatalf("got %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "something went wrong" {
		t.Fatalf("got %q", got)
	}
}
