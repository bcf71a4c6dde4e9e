package main

import "github.com/quantadb/quanta-go/cmd"

func main() {
	cmd.Execute()
}
