package main

import (
	"price-move-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
