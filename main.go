package main

import "github.com/frahmantamala/task-management/cmd"

func main() {
	cmd.Execute()
}
