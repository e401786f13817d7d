package main

// Version is the shell's release version.
//
// Build-time injection example:
//
//	wails build -clean -ldflags "-X main.Version=0.4.2"
//
// If not injected, it defaults to "dev", which every release is newer than.
var Version = "dev"
