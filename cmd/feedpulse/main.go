// Command feedpulse badges a Threads feed with engagement metrics and
// collects profile pages into markdown reports.
//
// Usage:
//
//	feedpulse watch                              # annotate the feed, serve the HTTP API
//	feedpulse collect --url https://www.threads.com/@handle --preset deep
//	feedpulse mcp                                # MCP over stdio
//	feedpulse verify --hash 123456               # print a gate.code_hash value
package main

func main() {
	Execute()
}
