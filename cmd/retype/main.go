package main

import "github.com/MeKo-Tech/retype/cmd/retype/cmd"

func main() {
	cmd.Execute()
}
