package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer sk-test-123", want: "sk-test-123"},
		{name: "lowercase scheme", header: "bearer sk-test-123", want: "sk-test-123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
		{name: "no scheme", header: "sk-test-123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				r.Header.Set(AuthorizationHeader, tt.header)
			}

			got, err := ExtractBearer(r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractBearer: %v", err)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("sk-test-123")
	b := Fingerprint("sk-test-123")
	if a != b {
		t.Errorf("fingerprint not deterministic: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if a == Fingerprint("sk-test-124") {
		t.Error("distinct credentials produced the same fingerprint")
	}
	if a == "sk-test-123" {
		t.Error("fingerprint must not equal the raw credential")
	}
}

func TestIsRawCredential(t *testing.T) {
	if !IsRawCredential("sk-abc") {
		t.Error("sk- prefixed token should be a raw credential")
	}
	if IsRawCredential("eyJhbGciOiJIUzI1NiJ9.x.y") {
		t.Error("JWT-looking token should not be a raw credential")
	}
}
