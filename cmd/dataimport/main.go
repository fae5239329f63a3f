package main

import "github.com/JonMunkholm/dataimport/cmd/dataimport/commands"

func main() {
	commands.Execute()
}
