package main

import "github.com/frahmantamala/civic-complaints/cmd"

func main() {
	cmd.Execute()
}
