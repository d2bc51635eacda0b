package main

import "github.com/quocvuong92/kshell/cmd"

func main() {
	cmd.Execute()
}
