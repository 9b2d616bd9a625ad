package main

import (
	"os"

	"github.com/davidhbaek/codegen/internal/codegen"
)

func main() {
	os.Exit(codegen.CLI(os.Args[1:]))
}
