package main

import "depthmirror/cmd/depthmirror/commands"

func main() {
	commands.Execute()
}
