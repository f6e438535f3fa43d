package main

import "cms_chat_console/internal/cli"

func main() {
	cli.Execute()
}
