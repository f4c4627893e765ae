package main

import "github.com/dbsmedya/congregate/cmd/congregate/cmd"

func main() {
	cmd.Execute()
}
