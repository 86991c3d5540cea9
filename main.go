package main

import "compositor/cmd"

func main() {
	cmd.Execute()
}
