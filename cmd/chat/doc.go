// Package main is a terminal chat client for the AquaChat proxy.
//
// It streams each reply as it is decoded and, with --db, keeps the
// conversation in a local SQLite file so it can be resumed later.
//
// Usage:
//
//	./chat --url http://localhost:8000/chat --db ~/.aquachat/history.db
//	./chat --db ~/.aquachat/history.db --conversation <id printed at startup>
package main
