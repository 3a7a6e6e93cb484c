package main

import "github.com/creativeprojects/mailstore/cmd"

func main() {
	cmd.Execute()
}
