package main

import (
	"log"

	"github.com/aussiebroadwan/ssohandoff/internal/resource"
)

func main() {
	srv, err := resource.New(resource.LoadConfig())
	if err != nil {
		log.Fatalf("failed to initialize resource server: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("resource server error: %v", err)
	}
}
