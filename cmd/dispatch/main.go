package main

import "github.com/andrescamacho/dispatch-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
