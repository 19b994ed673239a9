// Package logging sets up structured JSON logging for the ancestry CLI and
// server. With --debug, or whenever the MCP server runs, logs go to a
// size-rotated file under ~/.ancestry/logs/. The server never writes logs to
// stdout or stderr because stdout carries the protocol stream.
package logging
