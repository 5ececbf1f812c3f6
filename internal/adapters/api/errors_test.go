package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dkeye/Lobby/internal/domain"
)

func TestStatusForRoundTripsThroughErrorFor(t *testing.T) {
	cases := []error{
		domain.ErrRoomNotFound,
		domain.ErrRoomFull,
		domain.ErrRoomClosed,
		domain.ErrForbidden,
		domain.ErrUnauthorized,
		domain.ErrInvalidCode,
		domain.ErrCodeExpired,
	}
	for _, want := range cases {
		status, code := StatusFor(domain.NewOpError("op", want, "x"))
		got := ErrorFor(status, ErrorResponse{Code: code, Message: "x"})
		if !errors.Is(got, want) {
			t.Fatalf("%v: status %d code %s came back as %v", want, status, code, got)
		}
	}
}

func TestErrorForTransient(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"server error", http.StatusInternalServerError, CodeInternal},
		{"gateway", http.StatusBadGateway, ""},
		{"rate limited", http.StatusTooManyRequests, CodeRateLimited},
		{"unknown code", http.StatusTeapot, "brand_new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrorFor(tt.status, ErrorResponse{Code: tt.code})
			if !errors.Is(err, domain.ErrTransient) {
				t.Fatalf("want transient, got %v", err)
			}
			if domain.Classify(err) != domain.KindStoreTransient {
				t.Fatalf("classified as %s", domain.Classify(err))
			}
		})
	}
}

func TestFrameCodec(t *testing.T) {
	in := Frame{Type: FrameData, From: "a", To: "b", Payload: []byte{1, 2, 3}}
	b, err := EncodeFrame(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeFrame(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != in.Type || out.From != in.From || out.To != in.To || string(out.Payload) != string(in.Payload) {
		t.Fatalf("got %+v", out)
	}
	if _, err := DecodeFrame([]byte{0xc1}); err == nil {
		t.Fatal("garbage should not decode")
	}
}
