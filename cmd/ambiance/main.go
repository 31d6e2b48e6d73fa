package main

import (
	"context"
	"os"

	"ambiance/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
