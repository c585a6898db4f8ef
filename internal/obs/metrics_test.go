package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                                     "/",
		"/metrics":                                             "/metrics",
		"/user/3fa85f64-5717-4562-b3fc-2c963f66afa6":            "/user/:id",
		"/user/3fa85f64-5717-4562-b3fc-2c963f66afa6/api-key":    "/user/:id/api-key",
		"/format/42":                                            "/format/:id",
		"/upload_session/7?limit=10":                            "/upload_session/:id",
		"/record/filter":                                        "/record/filter",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
