package main

import "github.com/KaramelBytes/researchcrew-cli/cmd"

func main() {
	cmd.Execute()
}
