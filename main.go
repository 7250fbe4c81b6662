package main

import "github.com/gaurav-prasanna/ampify/cmd"

func main() {
	cmd.Execute()
}
