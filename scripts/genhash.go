// genhash prints bcrypt hashes for seeding ADMIN accounts, which cannot self-register.
//
//	go run ./scripts <password> [password...]
package main

import (
	"fmt"
	"os"

	"cv-platform-backend/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run ./scripts <password> [password...]")
		os.Exit(2)
	}

	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)
	for i, pass := range os.Args[1:] {
		hash, err := hasher.Hash(pass)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Printf("#%d\nHash: %s\n\n", i+1, hash)
	}
}
