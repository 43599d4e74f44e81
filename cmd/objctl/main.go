package main

import "github.com/vietddude/objstore/internal/cli"

func main() {
	cli.Execute()
}
