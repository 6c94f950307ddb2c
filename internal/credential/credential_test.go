package credential

import "testing"

func TestCheck(t *testing.T) {
	c := NewChecker("user", "user")

	cases := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"match", "user", "user", true},
		{"wrong password", "user", "hunter2", false},
		{"wrong username", "admin", "user", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Check(tc.username, tc.password); got != tc.want {
				t.Errorf("Check(%q, %q) = %v, want %v", tc.username, tc.password, got, tc.want)
			}
		})
	}
}
