package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(submain())
}

func submain() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.SetFlags(0)

	a := &app{code: exitUnset}
	root := newRootCmd(a)
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if a.code == exitUnset || a.code == 0 {
			return 1
		}
		return a.code
	}
	if a.code == exitUnset {
		return 0
	}
	return a.code
}
