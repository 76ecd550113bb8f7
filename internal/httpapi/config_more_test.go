package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("expected default %d, got %d", defaultMaxBodyBytes, maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetInferTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	defer SetInferTimeoutSeconds(0)
	SetInferTimeoutSeconds(-5)
	if inferTimeout != 0 {
		t.Fatalf("expected 0, got %d", inferTimeout)
	}
	SetInferTimeoutSeconds(3)
	if inferTimeout != 3 {
		t.Fatalf("expected 3, got %d", inferTimeout)
	}
}

func TestSetCORSOptions_CopiesSlices(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	origins := []string{"https://a.example"}
	SetCORSOptions(true, origins, nil, nil)
	origins[0] = "mutated"
	if !corsEnabled || corsAllowedOrigins[0] != "https://a.example" {
		t.Fatalf("unexpected cors config: %v %v", corsEnabled, corsAllowedOrigins)
	}
}
