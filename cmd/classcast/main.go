package main

import (
	"github.com/BioHazard786/classcast/internal/cli"
	"github.com/BioHazard786/classcast/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
