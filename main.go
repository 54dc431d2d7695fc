package main

import "github.com/chronosync/chronosync-api/cmd"

func main() {
	cmd.Execute()
}
