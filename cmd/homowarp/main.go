package main

import "github.com/MeKo-Tech/homowarp/cmd/homowarp/cmd"

func main() {
	cmd.Execute()
}
