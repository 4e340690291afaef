package main

import (
	"github.com/mchmarny/nutctl/pkg/cli"
)

func main() {
	cli.Execute()
}
