package main

import (
	"github.com/estate-protocol/tokenization-node/internal/cmd"
)

func main() {
	cmd.Execute()
}
