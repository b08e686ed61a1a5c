package main

import (
	"fmt"
	"os"

	"github.com/tubequeue/tubequeue/cmd"
)

func main() {
	if err := cmd.Execute(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tubequeue:", err)
		os.Exit(1)
	}
}
