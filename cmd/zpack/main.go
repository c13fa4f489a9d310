package main

import "github.com/deflatekit/pack/internal/cli"

func main() {
	cli.Execute()
}
