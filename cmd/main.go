package main

import (
	"fmt"
	"os"

	"github.com/Conflux-Chain/conflux-light-contracts/cmd/cfxlight/launcher"
)

func main() {
	if err := launcher.Launch(os.Args); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
