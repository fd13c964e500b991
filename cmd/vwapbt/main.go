package main

import (
	_ "time/tzdata"

	"session-vwap/internal/cli"
)

func main() {
	cli.Execute()
}
