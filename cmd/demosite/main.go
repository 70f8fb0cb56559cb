// Command demosite starts a local upstream for demoing the analyzer offline.
// Usage: go run ./cmd/demosite [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/sitelens/internal/demosite"
)

func main() {
	cfg := demosite.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   SiteLens Demo Site")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("This server hosts a sample website plus stand-ins for the")
	fmt.Println("external providers (PageSpeed, GeoIP, WHOIS, chat completions)")
	fmt.Println("so a full analysis can be demoed without network access.")
	fmt.Println()
	fmt.Println("Point the analyzer endpoints at this server and analyze")
	fmt.Println("http://localhost:<port>/ to see a complete report. Switch the")
	fmt.Println("page content with /demo/set-version?v=2 and re-analyze with")
	fmt.Println("refresh=1 to see content drift.")
	fmt.Println()

	server := demosite.NewDemoSite(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
