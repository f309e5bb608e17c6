package main

import "github.com/slotwatch/slotwatch/cmd"

func main() {
	cmd.Execute()
}
