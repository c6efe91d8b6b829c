package main

import (
	"github.com/nhoffman/deenurp/cmd"
	"github.com/nhoffman/deenurp/logger"
)

func main() {
	defer logger.Sync() // Make sure that the buffered is flushed.
	cmd.Execute()
}
