package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/xraph/bftrelay/signature"
)

func TestStatusForInvalidSignature(t *testing.T) {
	err := fmt.Errorf("decode request: %w", signature.ErrInvalid)
	if got := statusFor(err); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
}
