package main

import "github.com/planforge/planforge/internal/cli"

func main() {
	cli.Execute()
}
