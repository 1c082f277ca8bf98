package main

import (
	"codeflat/internal/cli"
)

func main() {
	cli.Execute()
}
