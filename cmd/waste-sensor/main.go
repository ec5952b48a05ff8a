package main

import "github.com/klabast/wb-services/waste-sensor/internal/commands"

func main() {
	commands.Execute()
}
