package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appVersion = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "engine",
		Short:   "Jimi autonomous agent engine",
		Version: appVersion,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newREPLCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
