// Command webperf measures response latency and status across URL batches.
package main

import "github.com/mncarlin/webperf/cmd"

func main() {
	cmd.Execute()
}
