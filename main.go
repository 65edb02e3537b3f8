/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/scrobd/scrobd/cmd"

func main() {
	cmd.Execute()
}
