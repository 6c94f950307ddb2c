// Package credential provides the static credential checker used by the
// server's authentication layer.
package credential

import "crypto/subtle"

// Checker validates a single static username/password pair.
type Checker struct {
	username string
	password string
}

func NewChecker(username, password string) *Checker {
	return &Checker{username: username, password: password}
}

// Check reports whether the presented pair matches, in constant time.
func (c *Checker) Check(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(c.username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(c.password))
	return u&p == 1
}
