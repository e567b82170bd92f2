package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://example.com/listings", "/p/2", "https://example.com/p/2"},
		{"https://example.com/a/b", "c", "https://example.com/a/c"},
		{"https://example.com/", "https://other.com/x", "https://other.com/x"},
	}
	for _, c := range cases {
		if got := ResolveURL(c.base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", c.base, c.href, got, c.want)
		}
	}
}

func TestWithQueryParam(t *testing.T) {
	got := WithQueryParam("https://example.com/listings?sort=price", "page", "3")
	if got != "https://example.com/listings?page=3&sort=price" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestWithPathSuffix(t *testing.T) {
	got := WithPathSuffix("https://example.com/listings/", "/page/2")
	if got != "https://example.com/listings/page/2" {
		t.Errorf("unexpected result: %s", got)
	}
}
