package main

import (
	"context"
	"fmt"
	"os"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "dayone:", err)
		os.Exit(1)
	}
}
