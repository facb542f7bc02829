package main

import (
	"finboard/internal/cli"
)

func main() {
	cli.Execute()
}
