package main

import (
	"os"

	"pland/internal/planctl"
)

func main() {
	os.Exit(planctl.Main(os.Args[1:]))
}
