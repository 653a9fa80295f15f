package main

import "github.com/mycampus-app/quickchat/cmd"

func main() {
	cmd.Execute()
}
