// Command multirust manages multiple Rust toolchains.
package main

import "multirust/internal/cli"

func main() {
	cli.Execute()
}
