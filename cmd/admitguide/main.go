package main

import "github.com/mchmarny/admitguide/pkg/cli"

func main() {
	cli.Execute()
}
