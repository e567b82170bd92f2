package headers

import "testing"

func TestParse(t *testing.T) {
	got := Parse([]string{
		"Accept-Language: en-NG",
		"X-Requested-With:XMLHttpRequest",
		"malformed",
		": empty name",
		"Empty-Value:  ",
	})

	if len(got) != 2 {
		t.Fatalf("parsed %d headers, want 2: %v", len(got), got)
	}
	if got["Accept-Language"] != "en-NG" {
		t.Errorf("Accept-Language = %q", got["Accept-Language"])
	}
	if got["X-Requested-With"] != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", got["X-Requested-With"])
	}
}
