package cookie

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func sampleCookies() []Cookie {
	return []Cookie{
		{Name: "sid", Value: "abc123", Path: "/", Domain: ".example.com", Secure: true, HTTPOnly: true, Expiry: 1893456000, SameSite: "Lax"},
		{Name: "lang", Value: "zh-CN", Path: "/", Domain: "www.example.com"},
	}
}

func TestCookie_JSONKeys(t *testing.T) {
	data, err := json.Marshal(sampleCookies()[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, key := range []string{`"name"`, `"value"`, `"path"`, `"domain"`, `"secure"`, `"httpOnly"`, `"expiry"`, `"sameSite"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON should contain %s: %s", key, data)
		}
	}
}

func TestFromProto(t *testing.T) {
	in := []*proto.NetworkCookie{
		{Name: "a", Value: "1", Domain: "example.com", Path: "/", Expires: 1700000000, HTTPOnly: true},
		{Name: "b", Value: "2", Domain: "example.com", Path: "/", Session: true, Expires: -1},
	}

	out := FromProto(in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Expiry != 1700000000 || !out[0].HTTPOnly {
		t.Errorf("first cookie = %+v", out[0])
	}
	if out[1].Expiry != 0 {
		t.Errorf("session cookie should have no expiry, got %d", out[1].Expiry)
	}
}

func TestCookie_Param(t *testing.T) {
	withDomain := sampleCookies()[0].Param("https://www.example.com/home")
	if withDomain.URL != "" {
		t.Errorf("URL should be empty when a domain is set, got %q", withDomain.URL)
	}
	if float64(withDomain.Expires) != 1893456000 {
		t.Errorf("Expires = %v", withDomain.Expires)
	}

	noDomain := Cookie{Name: "x", Value: "y"}.Param("https://www.example.com/home")
	if noDomain.URL != "https://www.example.com/home" {
		t.Errorf("URL = %q, want page URL", noDomain.URL)
	}
}

func TestStripForLogin(t *testing.T) {
	tests := []struct {
		name        string
		stripDomain bool
		wantDomain  bool
	}{
		{"keep domain", false, true},
		{"strip domain", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleCookies()
			out := StripForLogin(in, tt.stripDomain)

			for i, c := range out {
				if c.Expiry != 0 {
					t.Errorf("cookie %s should have no expiry", c.Name)
				}
				if (c.Domain != "") != tt.wantDomain {
					t.Errorf("cookie %s domain = %q", c.Name, c.Domain)
				}
				if c.Name != in[i].Name || c.Value != in[i].Value {
					t.Errorf("name/value changed: %+v", c)
				}
			}
			if in[0].Expiry == 0 {
				t.Error("input should not be modified")
			}
		})
	}
}

func TestJar(t *testing.T) {
	jar, err := Jar(sampleCookies(), "https://www.example.com/")
	if err != nil {
		t.Fatalf("Jar() error = %v", err)
	}

	u, _ := url.Parse("https://www.example.com/account")
	got := jar.Cookies(u)
	if len(got) != 2 {
		t.Fatalf("jar cookies = %d, want 2", len(got))
	}

	other, _ := url.Parse("https://other.org/")
	if len(jar.Cookies(other)) != 0 {
		t.Error("cookies should not leak to other domains")
	}
}

func TestJar_InvalidURL(t *testing.T) {
	if _, err := Jar(nil, "not a url"); err == nil {
		t.Error("Jar should reject a url without host")
	}
}

func TestStores_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	bolt, err := NewBoltStore(filepath.Join(dir, "db", "cookie.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "cookie", "cookie.json")),
		"bolt":   bolt,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			want := sampleCookies()
			if err := store.Save(want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := store.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("Load() = %d cookies, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("cookie %d = %+v, want %+v", i, got[i], want[i])
				}
			}

			if err := store.Save(want[:1]); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, _ = store.Load()
			if len(got) != 1 {
				t.Errorf("Save should overwrite, got %d cookies", len(got))
			}
		})
	}
}

func TestFileStore_LoadMissingCreatesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie", "cookie.json")
	store := NewFileStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file should be created: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("file = %q, want []", data)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Load should fail on corrupt JSON")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{"file", false},
		{"memory", false},
		{"bolt", false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, err := Open(tt.backend, filepath.Join(dir, tt.backend+".store"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if store != nil {
				store.Close()
			}
		})
	}
}
