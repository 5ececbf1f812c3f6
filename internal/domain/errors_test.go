package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrRoomNotFound, KindStoreNotFound},
		{ErrMemberNotFound, KindStoreNotFound},
		{ErrRoomClosed, KindStoreNotFound},
		{ErrInvalidCode, KindAllocatorFailure},
		{ErrCodeExpired, KindAllocatorFailure},
		{ErrAllocation, KindAllocatorFailure},
		{ErrInvalidArgument, KindConfiguration},
		{ErrJoinCodeMissing, KindConfiguration},
		{ErrRelayAlreadyStarted, KindConfiguration},
		{ErrUnauthorized, KindConfiguration},
		{ErrForbidden, KindConfiguration},
		{ErrHandoff, KindConfiguration},
		{ErrTransient, KindStoreTransient},
		{ErrRoomFull, KindStoreTransient},
		{errors.New("connection reset by peer"), KindStoreTransient},
		{context.DeadlineExceeded, KindStoreTransient},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
		if tc.err == nil {
			continue
		}
		wrapped := NewOpError("op", tc.err, "details")
		if got := Classify(wrapped); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", wrapped, got, tc.want)
		}
		twice := fmt.Errorf("outer: %w", wrapped)
		if got := Classify(twice); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", twice, got, tc.want)
		}
	}
}

func TestOpError(t *testing.T) {
	err := NewOpError("resolve", ErrInvalidCode, "ABC123")
	if err.Error() != "resolve: invalid join code (ABC123)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("OpError must unwrap to its sentinel")
	}
	if got := NewOpError("poll", ErrTransient, "").Error(); got != "poll: transient store error" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NewOpError("resolve", ErrJoinCodeMissing, ""), "no join code available"},
		{NewOpError("poll", ErrRoomNotFound, "r1"), "room no longer exists"},
		{ErrRoomClosed, "room no longer exists"},
		{NewOpError("resolve", ErrCodeExpired, "X"), "could not establish relay"},
		{ErrAllocation, "could not establish relay"},
		{ErrInvalidCode, "could not establish relay"},
		{NewOpError("elect host", ErrRelayAlreadyStarted, "OLD"), "elect host: relay already started by another session (OLD)"},
		{errors.New("boom"), "boom"},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindConfiguration.String() != "configuration" || Kind(42).String() != "kind(42)" {
		t.Fatalf("unexpected kind names %q %q", KindConfiguration, Kind(42))
	}
}
