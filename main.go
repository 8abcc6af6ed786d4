package main

import "github.com/dux-project/dux/cmd"

func main() {
	cmd.Execute()
}
