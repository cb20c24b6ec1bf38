package main

import "github.com/theirongolddev/costcast/cmd"

func main() {
	cmd.Execute()
}
