package main

import "portops/internal/cli"

func main() {
	cli.Execute()
}
