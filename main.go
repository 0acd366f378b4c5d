package main

import "github.com/dleimonis/guardian-dashboard-ai-sub000/cmd"

func main() {
	cmd.Execute()
}
