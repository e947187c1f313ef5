package httpapi

import "testing"

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"case insensitive scheme", "bearer abc", "abc", false},
		{"surrounding space", "  Bearer abc  ", "abc", false},
		{"empty", "", "", true},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", true},
		{"scheme only", "Bearer ", "", true},
		{"scheme only no space", "Bearer", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("extractBearerToken(%q) accepted, got %q", tc.header, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractBearerToken(%q): %v", tc.header, err)
			}
			if got != tc.want {
				t.Fatalf("token = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsTokenPath(t *testing.T) {
	if !isTokenPath("/v1/auth/token/verify") {
		t.Fatal("token verify path not recognized")
	}
	if isTokenPath("/v1/auth/signin") {
		t.Fatal("signin misclassified as token path")
	}
}
