package version

// Version is the current gamedns release.
const Version = "1.1.0"
