package uuidv7_test

import (
	"testing"

	"github.com/google/uuid"

	"pkt.systems/shelfd/internal/uuidv7"
)

func TestNewStringIsVersion7(t *testing.T) {
	t.Parallel()

	raw := uuidv7.NewString()
	parsed, err := uuid.Parse(raw)
	if err != nil {
		t.Fatalf("uuid.Parse: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if other := uuidv7.NewString(); other == raw {
		t.Fatal("expected unique values on subsequent calls")
	}
}
