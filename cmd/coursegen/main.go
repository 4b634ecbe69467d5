package main

import "coursegen/internal/cli"

func main() {
	cli.Execute()
}
