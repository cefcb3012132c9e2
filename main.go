package main

import "github.com/sono-ai/go-busi/cmd"

func main() {
	cmd.Execute()
}
