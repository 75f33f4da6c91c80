package main

import "github.com/joehsn/formify/cmd"

func main() {
	cmd.Execute()
}
