// Package main 是 hookbench 命令行入口
package main

import "yqhp/hookcall/cmd"

func main() {
	cmd.Execute()
}
