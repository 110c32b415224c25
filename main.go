package main

import "github.com/saviopoovathingal/SU2/cmd"

func main() {
	cmd.Execute()
}
