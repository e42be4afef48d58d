package main

import (
	"github.com/ll2l/esmigrate/cmd"
)

func main() {
	cmd.Run()
}
