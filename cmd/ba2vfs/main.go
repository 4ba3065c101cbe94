// Command ba2vfs lists and extracts files from Bethesda game archives.
package main

import "github.com/pg9182/ba2vfs/cmd"

func main() {
	cmd.Execute()
}
