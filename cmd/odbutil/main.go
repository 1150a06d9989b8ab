package main

import "github.com/planttracer/odb/internal/cli"

func main() {
	cli.Execute()
}
