// Package avatar holds the catalogue of avatar tags the client knows how to draw.
package avatar

import (
	"crypto/rand"
	"math/big"
)

// Default is the avatar the schema assigns when none is given
const Default = "robot1"

var catalogue = []string{
	"robot1", "robot2", "unicorn", "dragon", "cat", "dog", "lion", "panda",
}

// All returns a copy of the avatar catalogue
func All() []string {
	out := make([]string, len(catalogue))
	copy(out, catalogue)
	return out
}

// IsValid reports whether tag is in the catalogue
func IsValid(tag string) bool {
	for _, a := range catalogue {
		if a == tag {
			return true
		}
	}
	return false
}

// Pick returns a random avatar from the catalogue
func Pick() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(catalogue))))
	if err != nil {
		return "", err
	}
	return catalogue[n.Int64()], nil
}

// Resolve returns requested when it is a known avatar, otherwise a random one
func Resolve(requested string) string {
	if IsValid(requested) {
		return requested
	}
	picked, err := Pick()
	if err != nil {
		return Default
	}
	return picked
}
