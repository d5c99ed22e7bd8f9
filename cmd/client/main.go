package main

import "sitekeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
