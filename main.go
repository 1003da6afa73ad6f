package main

import "github.com/naka-gawa/github-star-classifier/cmd"

func main() {
	cmd.Execute()
}
