package main

import (
	"log"

	"github.com/MrSnakeDoc/lemcache/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ lemcache failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ lemcache stopped with error: %v", err)
	}
}
