// Command tracecatalog lists recorded bus trace bundles under a directory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abrahamvado/messagebus/tools/tracecatalog"
)

func main() {
	root := flag.String("dir", ".", "directory containing trace bundles")
	jsonFlag := flag.Bool("json", false, "emit JSON instead of human-readable output")
	flag.Parse()

	entries, err := tracecatalog.List(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *jsonFlag {
		payload, err := tracecatalog.MarshalEntries(entries)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(payload))
		return
	}

	for _, entry := range entries {
		fmt.Printf("%s (schema %d)\n", entry.BundleDir, entry.Header.SchemaVersion)
		fmt.Printf("  bus: %s\n", entry.Header.BusID)
		fmt.Printf("  queues: %d, tick: %dms\n", entry.Header.QueueCount, entry.Header.TickIntervalMs)
		fmt.Printf("  header: %s\n", entry.HeaderPath)
	}
}
