package main

import "github.com/KaramelBytes/gam-cli/cmd"

func main() {
	cmd.Execute()
}
