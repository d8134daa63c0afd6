// Gateman is an HTTP/HTTPS API gateway: it classifies inbound requests
// against a catalog of API definitions, rate-limits admission per origin,
// and forwards admitted requests to one of the origin's backend servers.
package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "resources/config/gateway.yml", "path to process config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("gateman", version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
