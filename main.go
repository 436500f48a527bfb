// Command gearclaw is the entry point for the gearclaw CLI and gateway.
package main

import "github.com/gearclaw/gearclaw/cmd"

func main() {
	cmd.Execute()
}
