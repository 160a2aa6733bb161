package main

// Version is overridden at release time via -ldflags.
var Version = "0.4.0"
