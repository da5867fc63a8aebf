package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                           "/",
		"/metrics":                   "/metrics",
		"/v1/patients/01ABC":         "/v1/patients/:id",
		"/v1/cabinets/01XYZ":         "/v1/cabinets/:id",
		"/v1/patients":               "/v1/patients",
		"/v1/patients?limit=10":      "/v1/patients",
		"/v1/auth/refresh":           "/v1/auth/refresh",
		"/v1/treatment-plans/01DEF":  "/v1/treatment-plans/:id",
		"/v1/patients/01ABC/history": "/v1/patients/01ABC/history",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
