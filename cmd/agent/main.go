// Command rescue-agent is the on-device alert engine: it raises alerts online or offline,
// drains the offline queue on reconnect and follows the canonical store in real time.
package main

func main() {
	Execute()
}
