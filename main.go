package main

import "oss-manager/cmd"

func main() {
	cmd.Execute()
}
