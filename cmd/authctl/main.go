package main

import (
	"log"

	tool "github.com/okhan/userauth/internal/tools/authctl"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
