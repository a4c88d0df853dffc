package httpserver

import "testing"

func TestConfigValidate(test *testing.T) {
	test.Parallel()
	valid := Config{ListenAddr: ":8080", AllowedOrigins: []string{"http://localhost:3000"}}
	if err := valid.Validate(); err != nil {
		test.Fatalf("valid config rejected: %v", err)
	}
	missingAddr := Config{AllowedOrigins: []string{"http://localhost:3000"}}
	if err := missingAddr.Validate(); err == nil {
		test.Fatalf("missing listen addr must be rejected")
	}
	missingOrigins := Config{ListenAddr: ":8080"}
	if err := missingOrigins.Validate(); err == nil {
		test.Fatalf("missing origins must be rejected")
	}
}

func TestParseAllowedOrigins(test *testing.T) {
	test.Parallel()
	origins := ParseAllowedOrigins(" http://localhost:3000 , http://localhost ,, ")
	if len(origins) != 2 {
		test.Fatalf("expected two origins, got %v", origins)
	}
	if origins[0] != "http://localhost:3000" || origins[1] != "http://localhost" {
		test.Fatalf("unexpected origins %v", origins)
	}
	if got := ParseAllowedOrigins("   "); len(got) != 0 {
		test.Fatalf("blank input must yield no origins, got %v", got)
	}
}
