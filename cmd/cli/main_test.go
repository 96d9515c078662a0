package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/credentials"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "totp-keeper")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	_ = withTmpConfig(t)
	got := cfgDir()
	base := os.Getenv("XDG_CONFIG_HOME") + "/totp-keeper"
	if got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	now := time.Now().Add(1 * time.Minute)
	if err := saveToken("tok", now); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tok, err := loadToken()
	if err != nil || tok != "tok" {
		t.Fatalf("loadToken: tok=%q err=%v", tok, err)
	}
	if fi, err := os.Stat(tokenPath()); err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("token file must be private: %v %v", fi, err)
	}
	if err := saveToken("tok2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
}

func Test_readSecret_Value_And_Stdin(t *testing.T) {
	got, err := readSecret("ABC")
	if err != nil || got != "ABC" {
		t.Fatalf("readSecret(value): %q %v", got, err)
	}

	r, w, _ := os.Pipe()
	old := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = old }()
	go func() { _, _ = io.WriteString(w, "from-stdin\n"); _ = w.Close() }()
	got, err = readSecret("-")
	if err != nil || got != "from-stdin" {
		t.Fatalf("readSecret(stdin): %q %v", got, err)
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	t.Parallel()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	printJSON(map[string]any{"a": 1})
	_ = w.Close()
	out, _ := io.ReadAll(r)

	var m map[string]any
	if json.Unmarshal(out, &m) != nil || m["a"] != float64(1) {
		t.Fatalf("printJSON produced invalid json: %s", string(out))
	}
	if !bytes.Contains(out, []byte("\n")) {
		t.Fatalf("printJSON should indent")
	}
}

func Test_tokenExpiry(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := tokenExpiry("2025-01-02T03:04:05Z"); !got.Equal(want) {
		t.Fatalf("tokenExpiry=%s, want %s", got, want)
	}
	if got := tokenExpiry("garbage"); got.Before(time.Now()) {
		t.Fatalf("fallback expiry should be in the future: %s", got)
	}
}

func Test_currentCode(t *testing.T) {
	t.Parallel()

	// RFC 6238 SHA1 vector
	got, err := currentCode("GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", time.Unix(59, 0))
	if err != nil || got != "287082" {
		t.Fatalf("currentCode=%q err=%v", got, err)
	}
	if _, err := currentCode("short", time.Now()); err == nil {
		t.Fatalf("want error on short secret")
	}
}

func Test_bearerCreds_Metadata(t *testing.T) {
	t.Parallel()

	b := bearerCreds{token: "T"}
	md, err := b.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata: %v", err)
	}
	if md["authorization"] != "Bearer T" {
		t.Fatalf("auth header mismatch: %v", md)
	}
	if !b.RequireTransportSecurity() {
		t.Fatalf("bearerCreds must require TLS")
	}
}

func Test_loadTLS_Variants(t *testing.T) {
	t.Parallel()

	// insecure
	creds, err := loadTLS("", true)
	if err != nil || creds == nil {
		t.Fatalf("insecure: %v %v", creds, err)
	}

	// system default (no caPath)
	creds, err = loadTLS("", false)
	if err != nil || creds == nil {
		t.Fatalf("default tls: %v %v", creds, err)
	}

	// bad CA file
	tmp := filepath.Join(t.TempDir(), "bad.pem")
	_ = os.WriteFile(tmp, []byte("not pem"), 0o600)
	creds, err = loadTLS(tmp, false)
	if err == nil || creds != nil {
		t.Fatalf("bad CA should error, got creds=%v err=%v", creds, err)
	}

	// sanity check type
	_ = credentials.TransportCredentials(nil) // compile-time reference
}
