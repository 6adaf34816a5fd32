package main

import "github.com/bryanwahyu/codeaudit/internal/cli"

func main() {
	cli.Execute()
}
