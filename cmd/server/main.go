package main // Entry point package

import "github.com/iliyamo/table-reservation/internal/cli"

func main() {
	cli.Execute()
}
