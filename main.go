package main

import "github.com/caedis/void-mod-installer/cmd"

func main() {
	cmd.Execute()
}
