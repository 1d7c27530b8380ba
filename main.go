package main

import "github.com/Alijeyrad/carevisit_backend/cmd"

func main() {
	cmd.Execute()
}
