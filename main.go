package main

import "github.com/user/chatvault/cmd"

func main() {
	cmd.Execute()
}
