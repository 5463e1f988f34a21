package main

import "github.com/gregLibert/fmcos/internal/cli"

func main() {
	cli.Execute()
}
