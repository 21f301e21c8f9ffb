package redblack

// BinaryGitHash is the Git hash of the redblack binary file which is executing.
// It is overridden at link time: -ldflags "-X github.com/cyraxred/redblack.BinaryGitHash=..."
var BinaryGitHash = "<unknown>"

// BinaryVersion is redblack's API version. It matches the package name.
const BinaryVersion = 1
