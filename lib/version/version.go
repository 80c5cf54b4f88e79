package version

// Release builds set this at link time.
var Version = "v0.1.0-HEAD"
