package main

import "github.com/antoinerrr/ssh-ecs/cmd"

func main() {
	cmd.Execute()
}
