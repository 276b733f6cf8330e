package main

import "Bt1Stream/cmd"

func main() {
	cmd.Execute()
}
