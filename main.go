package main

import "github.com/jj1bdx/erldoc/cmd"

func main() {
	cmd.Execute()
}
