package main

import (
	"context"
	"os"

	"github.com/hamed0406/icheck/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.Env{}, os.Args[1:]))
}
