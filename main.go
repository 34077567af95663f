package main

import "github.com/turbolytics/ckandiff/internal/cmd"

func main() {
	cmd.Execute()
}
